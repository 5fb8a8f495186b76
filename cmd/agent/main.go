package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"leettrack-sync/internal/client"
	"leettrack-sync/internal/config"
	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/store"
	"leettrack-sync/internal/syncer"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
)

const bootstrapTimeout = 30 * time.Second

func main() {
	seedPath := flag.String("seed", "", "path to a reference topics JSON used to initialize an empty store")
	toggle := flag.String("toggle", "", "toggle a problem's completion before syncing, as topicId:number (e.g. 1:167)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := store.Open(cfg.Agent.StorePath)
	if err != nil {
		log.Fatalf("failed to open local store: %v", err)
	}
	defer st.Close()

	defaults, err := loadSeed(*seedPath)
	if err != nil {
		log.Fatalf("failed to load seed topics: %v", err)
	}

	progress, err := st.LoadProgress(defaults)
	if err != nil {
		log.Fatalf("failed to load progress: %v", err)
	}

	var mu sync.Mutex
	snapshot := func() []domain.TopicProgress {
		mu.Lock()
		defer mu.Unlock()
		return progress
	}
	replace := func(next []domain.TopicProgress) error {
		mu.Lock()
		progress = next
		mu.Unlock()
		return st.SaveProgress(next)
	}

	cli := client.New(cfg.Agent.ServerURL)

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	login, err := cli.Login(ctx, cfg.Agent.Email, cfg.Agent.Password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Infof("logged in as %s (%s)", login.User.Email, login.User.Role)

	if *toggle != "" {
		if err := applyToggle(snapshot, replace, *toggle); err != nil {
			log.Fatalf("toggle failed: %v", err)
		}
	}

	sess := syncer.NewSession()
	rec := syncer.NewReconciler(cli)

	outcome, err := rec.Bootstrap(ctx, sess, snapshot())
	if err != nil {
		log.Warnf("bootstrap sync incomplete: %v", err)
	}
	if outcome != nil {
		if err := applyOutcome(ctx, cli, sess, outcome, replace); err != nil {
			log.Fatalf("failed to apply sync outcome: %v", err)
		}
	}

	sched := syncer.NewScheduler(cli, sess, snapshot, cfg.Agent.SyncInterval, cfg.Agent.FlushDebounce)
	if *toggle != "" {
		sched.MarkDirty()
	}
	sched.Start()
	log.Infof("background sync every %s, flush debounce %s", cfg.Agent.SyncInterval, cfg.Agent.FlushDebounce)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down, flushing progress")
	sched.Stop()
	if err := cli.Beacon(snapshot()); err != nil {
		log.Warnf("final flush failed: %v", err)
	}
}

func loadSeed(path string) ([]domain.TopicProgress, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var topics []domain.TopicProgress
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %v", path, err)
	}
	return topics, nil
}

func applyToggle(snapshot func() []domain.TopicProgress, replace func([]domain.TopicProgress) error, arg string) error {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected topicId:number, got %q", arg)
	}
	var topicID int
	if _, err := fmt.Sscanf(parts[0], "%d", &topicID); err != nil {
		return fmt.Errorf("invalid topic id %q", parts[0])
	}

	current := snapshot()
	if !domain.ToggleProblem(current, topicID, parts[1], time.Now()) {
		return fmt.Errorf("no problem %s in topic %d", parts[1], topicID)
	}
	if err := replace(current); err != nil {
		return err
	}
	log.Infof("toggled problem %s in topic %d", parts[1], topicID)
	return nil
}

func applyOutcome(ctx context.Context, cli *client.Client, sess *syncer.Session, outcome *syncer.Outcome, replace func([]domain.TopicProgress) error) error {
	switch outcome.Decision {
	case syncer.DecisionNoop:
		log.Warnf("cloud sync deferred: %s", outcome.Reason)

	case syncer.DecisionAdoptCloud:
		log.Infof("adopting cloud progress: %s", outcome.Reason)
		if err := replace(outcome.Cloud); err != nil {
			return err
		}

	case syncer.DecisionUploadLocal, syncer.DecisionUploadForced:
		log.Infof("local progress uploaded: %s", outcome.Reason)

	case syncer.DecisionConflict:
		return resolveConflict(ctx, cli, sess, outcome, replace)
	}
	return nil
}

// resolveConflict prompts the user to pick a resolution strategy, applies
// it, and only then marks the session ready so background sync cannot race
// an unresolved conflict.
func resolveConflict(ctx context.Context, cli *client.Client, sess *syncer.Session, outcome *syncer.Outcome, replace func([]domain.TopicProgress) error) error {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Local and cloud progress have diverged. How should they be reconciled?").
				Description(fmt.Sprintf("Local: %d completed problems. Cloud: %d completed problems.",
					outcome.LocalFP.Count, outcome.CloudFP.Count)).
				Options(
					huh.NewOption("Keep local progress (overwrite cloud)", string(domain.ResolutionLocal)),
					huh.NewOption("Keep cloud progress (overwrite local)", string(domain.ResolutionCloud)),
					huh.NewOption("Merge both (union of completions)", string(domain.ResolutionMerge)),
				).
				Value(&choice),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("failed to read conflict resolution choice: %v", err)
	}

	result, uploadRequired, err := syncer.Resolve(domain.ResolutionStrategy(choice), outcome.Local, outcome.Cloud, time.Now())
	if err != nil {
		return err
	}

	if err := replace(result); err != nil {
		return err
	}
	if uploadRequired {
		if _, err := cli.UploadProgress(ctx, result, true); err != nil {
			return fmt.Errorf("failed to upload resolved progress: %v", err)
		}
	}

	sess.FinishBootstrap()
	log.Infof("conflict resolved with strategy %q", choice)
	return nil
}
