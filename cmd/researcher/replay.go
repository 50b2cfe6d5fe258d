package main

import (
	"fmt"
	"os"

	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/replay"
)

// Run replays a session given as a JSONL file or an ID in the configured store.
func (c *ReplayCmd) Run(g *Globals) error {
	r := replay.New(os.Stdout, c.Verbose)
	if _, err := os.Stat(c.Session); err == nil {
		return r.ReplayFile(c.Session)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	return replaySession(r, cfg, c.Session)
}

// replaySession looks id up in the configured session store.
func replaySession(r *replay.Replayer, cfg *config.Config, id string) error {
	store, err := openStore(cfg, config.ExpandPath(cfg.Storage.Path))
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("session store disabled (storage.session_store = none)")
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	sess, err := store.Load(id)
	if err != nil {
		return err
	}
	return r.Replay(sess)
}
