package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"relief/internal/core"
	"relief/internal/store/memory"
)

var errUnavailable = errors.New("store unavailable")

// flakyStore wraps an in-memory store and fails selected keys on demand.
type flakyStore struct {
	*memory.Store

	mu      sync.Mutex
	failGet map[string]error
	failSet map[string]error
	sets    map[string]int
}

func newFlakyStore(deviceID string) *flakyStore {
	return &flakyStore{
		Store:   memory.New(deviceID),
		failGet: map[string]error{},
		failSet: map[string]error{},
		sets:    map[string]int{},
	}
}

func (f *flakyStore) Get(ctx context.Context, key string, shared bool) (string, bool, error) {
	f.mu.Lock()
	err := f.failGet[key]
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.Store.Get(ctx, key, shared)
}

func (f *flakyStore) Set(ctx context.Context, key, value string, shared bool) error {
	f.mu.Lock()
	err := f.failSet[key]
	f.sets[key]++
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value, shared)
}

func (f *flakyStore) breakGet(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[key] = errUnavailable
}

func (f *flakyStore) breakSet(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet[key] = errUnavailable
}

func (f *flakyStore) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = map[string]error{}
	f.failSet = map[string]error{}
}

func (f *flakyStore) setCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key]
}

type recordingPublisher struct {
	mu        sync.Mutex
	donations []core.Donation
	votes     map[int64]int
	err       error
}

func (p *recordingPublisher) PublishDonation(_ context.Context, d core.Donation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.donations = append(p.donations, d)
	return p.err
}

func (p *recordingPublisher) PublishVote(_ context.Context, id int64, votes int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.votes == nil {
		p.votes = map[int64]int{}
	}
	p.votes[id] = votes
	return p.err
}

type countingMetrics struct {
	mu        sync.Mutex
	donations int
	votes     int
	rejected  map[string]int
	failures  map[string]int
}

func (m *countingMetrics) DonationRecorded(core.Money) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations++
}

func (m *countingMetrics) VoteCast(int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes++
}

func (m *countingMetrics) VoteRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected == nil {
		m.rejected = map[string]int{}
	}
	m.rejected[reason]++
}

func (m *countingMetrics) StoreFailure(op, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = map[string]int{}
	}
	m.failures[op+":"+key]++
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func cents(c int64) core.Money { return core.Money{Cents: c} }
