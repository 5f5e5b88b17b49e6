// Package monitoring implements the append-only monitoring log: the
// Core/Payloads snapshot shape, the update kinds agents push, the
// Agent that wraps executing tasks to push them, and the Watcher that
// aggregates them. Grounded on original_source/edera/monitoring/
// {snapshot,agent,watcher}.py, adjusted to this project's
// authoritative Core/Payloads split (a payload is sizable - bounded
// logs - and versioned independently of the rest of a task's state, so
// a noisy task doesn't force a rewrite of every other task's state on
// every watcher cycle).
package monitoring

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"time"
)

// LogLimit bounds how many log entries Logs keeps per agent.
const LogLimit = 10

// Alias is the first 10 hex characters of sha1(name), the stable
// storage-friendly identifier a TaskState/TaskPayload is keyed by.
func Alias(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])[:10]
}

// LogEntry is one captured log line.
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// TaskState is the per-task row of the Core snapshot.
type TaskState struct {
	Name      string
	Phony     bool
	Completed bool
	// Stale marks a task that no agent reports and that has no active
	// descendant: it disappeared from the world rather than finishing.
	Stale    bool
	Agents   map[string]struct{}
	Runs     map[string]time.Time
	Failures map[string]time.Time
	Span     *[2]time.Time
	Baggage  map[string]string
}

// TaskPayload is the per-task row persisted separately from Core, since
// its Logs grow independently of task status.
type TaskPayload struct {
	Dependencies []string // alias list; nil means "not yet observed"
	Logs         map[string][]LogEntry
}

// Core is the serialized-per-update half of a MonitoringSnapshot.
type Core struct {
	Aliases   map[string]string // task name -> alias
	States    map[string]TaskState
	Timestamp time.Time
}

// NewCore returns an empty Core, the Watcher's starting point when no
// checkpoint exists yet.
func NewCore() *Core {
	return &Core{Aliases: make(map[string]string), States: make(map[string]TaskState)}
}

// Checkpoint anchors recovery: the versions of Core and every Payload
// it was written with, plus each agent's next-update cursor.
type Checkpoint struct {
	Version         int
	Cursors         map[string]int
	CoreVersion     int
	PayloadVersions map[string]int
}

// NewCheckpoint returns an empty Checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{Cursors: make(map[string]int), PayloadVersions: make(map[string]int)}
}

// Update is a unit of progress an Agent pushes and the Watcher applies
// to a Core/Payloads pair, returning the aliases it touched.
type Update interface {
	Apply(core *Core, payloads map[string]*TaskPayload, agent string) []string
}

func ensureState(core *Core, alias, name string) TaskState {
	state, ok := core.States[alias]
	if !ok {
		state = TaskState{Name: name, Agents: make(map[string]struct{})}
	}
	if state.Agents == nil {
		state.Agents = make(map[string]struct{})
	}
	if state.Runs == nil {
		state.Runs = make(map[string]time.Time)
	}
	if state.Failures == nil {
		state.Failures = make(map[string]time.Time)
	}
	return state
}

func ensurePayload(payloads map[string]*TaskPayload, alias string) *TaskPayload {
	p, ok := payloads[alias]
	if !ok || p == nil {
		p = &TaskPayload{}
		payloads[alias] = p
	}
	if p.Logs == nil {
		p.Logs = make(map[string][]LogEntry)
	}
	return p
}

// WorkflowUpdate reports every task a single agent currently sees, its
// dependency names and phony/baggage annotations - effectively "here is
// everything I see right now", letting apply detect tasks this agent
// has stopped reporting. Grounded on monitoring/snapshot.py's
// WorkflowUpdate, with the stale-task branch spec.md §9 Open Question 3
// resolves in favor of.
type WorkflowUpdate struct {
	Dependencies map[string][]string
	Phonies      map[string]bool
	Baggages     map[string]map[string]string
}

func (u WorkflowUpdate) Apply(core *Core, payloads map[string]*TaskPayload, agent string) []string {
	reported := make(map[string]bool, len(u.Dependencies))
	var affected []string

	for name := range u.Dependencies {
		reported[name] = true
		alias := Alias(name)
		core.Aliases[name] = alias
		state := ensureState(core, alias, name)
		state.Name = name
		state.Agents[agent] = struct{}{}
		state.Phony = u.Phonies[name]
		state.Baggage = u.Baggages[name]
		core.States[alias] = state

		payload := ensurePayload(payloads, alias)
		if payload.Dependencies == nil {
			deps := make([]string, 0, len(u.Dependencies[name]))
			for _, dep := range u.Dependencies[name] {
				deps = append(deps, Alias(dep))
			}
			payload.Dependencies = deps
		}
		affected = append(affected, alias)
	}

	children := childrenOf(payloads)
	for alias, state := range core.States {
		if reported[state.Name] {
			continue
		}
		if _, had := state.Agents[agent]; !had {
			continue
		}
		delete(state.Agents, agent)
		if len(state.Agents) == 0 {
			if hasActiveDescendant(core, children, alias, make(map[string]bool)) {
				state.Completed = true
				state.Stale = false
			} else {
				state.Stale = true
			}
		}
		core.States[alias] = state
		affected = append(affected, alias)
	}
	return affected
}

func childrenOf(payloads map[string]*TaskPayload) map[string][]string {
	out := make(map[string][]string)
	for child, payload := range payloads {
		if payload == nil {
			continue
		}
		for _, dep := range payload.Dependencies {
			out[dep] = append(out[dep], child)
		}
	}
	return out
}

func hasActiveDescendant(core *Core, children map[string][]string, alias string, visited map[string]bool) bool {
	for _, child := range children[alias] {
		if visited[child] {
			continue
		}
		visited[child] = true
		if state, ok := core.States[child]; ok && len(state.Agents) > 0 {
			return true
		}
		if hasActiveDescendant(core, children, child, visited) {
			return true
		}
	}
	return false
}

// Status is the lifecycle a TaskStatusUpdate reports.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// TaskStatusUpdate reports a single task's lifecycle transition for one
// agent. Grounded on monitoring/snapshot.py's TaskStatusUpdate.
type TaskStatusUpdate struct {
	Task      string
	Status    Status
	Timestamp time.Time
}

func (u TaskStatusUpdate) Apply(core *Core, payloads map[string]*TaskPayload, agent string) []string {
	alias := Alias(u.Task)
	state := ensureState(core, alias, u.Task)
	switch u.Status {
	case StatusRunning:
		state.Runs[agent] = u.Timestamp
	case StatusCompleted:
		startedAt, hadRun := state.Runs[agent]
		delete(state.Runs, agent)
		state.Completed = true
		state.Stale = false
		if state.Span == nil && hadRun {
			state.Span = &[2]time.Time{startedAt, u.Timestamp}
		}
	case StatusFailed:
		state.Failures[agent] = u.Timestamp
		delete(state.Runs, agent)
	default: // StatusStopped, or anything else excusable
		delete(state.Runs, agent)
	}
	core.States[alias] = state
	return []string{alias}
}

// TaskLogUpdate appends a captured log line for one agent, capped at
// LogLimit per agent. Grounded on monitoring/snapshot.py's
// TaskLogUpdate.
type TaskLogUpdate struct {
	Task      string
	Message   string
	Timestamp time.Time
}

func (u TaskLogUpdate) Apply(core *Core, payloads map[string]*TaskPayload, agent string) []string {
	alias := Alias(u.Task)
	payload := ensurePayload(payloads, alias)
	entries := append([]LogEntry{{Timestamp: u.Timestamp, Message: u.Message}}, payload.Logs[agent]...)
	if len(entries) > LogLimit {
		entries = entries[:LogLimit]
	}
	payload.Logs[agent] = entries
	return []string{alias}
}

// Augment re-derives every phony task's completed flag bottom-up: a
// phony task is complete iff none of its (alias) dependencies are
// pending, and sets Core's timestamp. Grounded on watcher.py's augment
// step.
func Augment(core *Core, payloads map[string]*TaskPayload, timestamp time.Time) {
	for _, alias := range dependencyOrder(core, payloads) {
		state, ok := core.States[alias]
		if !ok || !state.Phony {
			continue
		}
		pending := false
		if payload := payloads[alias]; payload != nil {
			for _, dep := range payload.Dependencies {
				depState, ok := core.States[dep]
				if !ok || !depState.Completed {
					pending = true
					break
				}
			}
		}
		state.Completed = !pending
		core.States[alias] = state
	}
	core.Timestamp = timestamp
}

// dependencyOrder returns every alias in core, ordered so a task always
// appears after every alias it (transitively) depends on.
func dependencyOrder(core *Core, payloads map[string]*TaskPayload) []string {
	aliases := make([]string, 0, len(core.States))
	for alias := range core.States {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	visited := make(map[string]bool, len(aliases))
	order := make([]string, 0, len(aliases))
	var visit func(alias string)
	visit = func(alias string) {
		if visited[alias] {
			return
		}
		visited[alias] = true
		if payload, ok := payloads[alias]; ok {
			for _, dep := range payload.Dependencies {
				visit(dep)
			}
		}
		order = append(order, alias)
	}
	for _, alias := range aliases {
		visit(alias)
	}
	return order
}
