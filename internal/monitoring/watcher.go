package monitoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/edera-run/workflowd/internal/routine"
	"github.com/edera-run/workflowd/internal/storage"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// Watcher aggregates every agent's updates into a single checkpointed
// Core/Payloads snapshot. Grounded on original_source/edera/monitoring/
// watcher.py, adjusted to this project's "core"/"payload/<alias>" key
// space (spec.md §6) rather than the source's single "snapshot" key.
type Watcher struct {
	Monitor storage.Storage
}

func (w *Watcher) loadAt(key string, version int) (string, error) {
	records, err := w.Monitor.Get(key, &version, nil)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", &xerrors.MonitorInconsistencyError{Reason: fmt.Sprintf("no record for %q at version %d", key, version)}
	}
	last := records[len(records)-1]
	if last.Version != version {
		return "", &xerrors.MonitorInconsistencyError{Reason: fmt.Sprintf("%q has no version %d", key, version)}
	}
	return last.Value, nil
}

// LoadCore loads the "core" record at exactly version.
func (w *Watcher) LoadCore(version int) (*Core, error) {
	data, err := w.loadAt("core", version)
	if err != nil {
		return nil, err
	}
	return DecodeCore(data)
}

// LoadPayload loads the "payload/<alias>" record at exactly version.
func (w *Watcher) LoadPayload(alias string, version int) (*TaskPayload, error) {
	data, err := w.loadAt("payload/"+alias, version)
	if err != nil {
		return nil, err
	}
	return DecodePayload(data)
}

// Recover loads the last checkpoint and the core/payload versions it
// references, or returns an empty snapshot if none exists yet.
// Grounded on MonitorWatcher.recover.
func (w *Watcher) Recover() (*Core, map[string]*TaskPayload, *Checkpoint, error) {
	one := 1
	records, err := w.Monitor.Get("checkpoint", nil, &one)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) == 0 {
		return NewCore(), make(map[string]*TaskPayload), NewCheckpoint(), nil
	}
	checkpoint, err := DecodeCheckpoint(records[0].Value)
	if err != nil {
		return nil, nil, nil, err
	}
	checkpoint.Version = records[0].Version

	core, err := w.LoadCore(checkpoint.CoreVersion)
	if err != nil {
		return nil, nil, nil, err
	}
	payloads := make(map[string]*TaskPayload, len(checkpoint.PayloadVersions))
	for alias, version := range checkpoint.PayloadVersions {
		payload, err := w.LoadPayload(alias, version)
		if err != nil {
			return nil, nil, nil, err
		}
		payloads[alias] = payload
	}
	return core, payloads, checkpoint, nil
}

// pull reads agent's updates since cursor, returning them in
// chronological order (Storage.Get answers latest-first) plus the
// cursor's next value.
func (w *Watcher) pull(agent string, cursor int) ([]Update, int, error) {
	since := cursor
	records, err := w.Monitor.Get("update/"+agent, &since, nil)
	if err != nil {
		return nil, cursor, err
	}
	updates := make([]Update, 0, len(records))
	next := cursor
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		u, err := DecodeUpdate(r.Value)
		if err != nil {
			return nil, cursor, err
		}
		updates = append(updates, u)
		if r.Version+1 > next {
			next = r.Version + 1
		}
	}
	return updates, next, nil
}

// aggregate discovers agents, pulls and applies their pending updates,
// and returns the aliases touched this round. Grounded on watcher.py's
// aggregate step.
func (w *Watcher) aggregate(core *Core, payloads map[string]*TaskPayload, checkpoint *Checkpoint) ([]string, error) {
	agents, err := Discover(w.Monitor)
	if err != nil {
		return nil, err
	}
	var affected []string
	for _, agent := range agents {
		updates, next, err := w.pull(agent, checkpoint.Cursors[agent])
		if err != nil {
			return nil, err
		}
		for _, u := range updates {
			affected = append(affected, u.Apply(core, payloads, agent)...)
		}
		checkpoint.Cursors[agent] = next
	}
	return affected, nil
}

// commit persists core at a new version, each affected payload at a
// new version, then the checkpoint referencing them (the commit point,
// per invariant 6), and GCs everything older. Grounded on watcher.py's
// persist+GC steps.
func (w *Watcher) commit(core *Core, payloads map[string]*TaskPayload, checkpoint *Checkpoint, affected []string) error {
	coreData, err := EncodeCore(core)
	if err != nil {
		return err
	}
	coreVersion, err := w.Monitor.Put("core", coreData)
	if err != nil {
		return err
	}
	checkpoint.CoreVersion = coreVersion

	for _, alias := range dedupe(affected) {
		payload := payloads[alias]
		if payload == nil {
			continue
		}
		data, err := EncodePayload(payload)
		if err != nil {
			return err
		}
		version, err := w.Monitor.Put("payload/"+alias, data)
		if err != nil {
			return err
		}
		checkpoint.PayloadVersions[alias] = version
	}

	checkpointData, err := EncodeCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	newVersion, err := w.Monitor.Put("checkpoint", checkpointData)
	if err != nil {
		return err
	}
	checkpoint.Version = newVersion

	if err := w.Monitor.Delete("core", &coreVersion); err != nil {
		return err
	}
	for alias, version := range checkpoint.PayloadVersions {
		if err := w.Monitor.Delete("payload/"+alias, &version); err != nil {
			return err
		}
	}
	if err := w.Monitor.Delete("checkpoint", &newVersion); err != nil {
		return err
	}
	for agent, cursor := range checkpoint.Cursors {
		if err := w.Monitor.Delete("update/"+agent, &cursor); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// Run recovers the last snapshot and then aggregates forever, waiting
// at least delay between iterations, until ctx is cancelled. Grounded
// on MonitorWatcher.run.
func (w *Watcher) Run(ctx context.Context, delay time.Duration) error {
	core, payloads, checkpoint, err := w.Recover()
	if err != nil {
		return err
	}
	for {
		if err := routine.Checkpoint(ctx); err != nil {
			return err
		}
		start := time.Now()

		affected, err := w.aggregate(core, payloads, checkpoint)
		if err != nil {
			return err
		}
		Augment(core, payloads, time.Now())
		if err := w.commit(core, payloads, checkpoint, affected); err != nil {
			return err
		}

		if sleep := delay - time.Since(start); sleep > 0 {
			if err := routine.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
	}
}
