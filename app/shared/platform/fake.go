package platform

import (
	"context"
	"fmt"
	"sync"
)

// FakeNotifier records every delivery for assertions. Zero value is usable.
type FakeNotifier struct {
	mu sync.Mutex

	// FailThreadCreate makes CreateMatchThread fail, to exercise the
	// required-side-effect abort path.
	FailThreadCreate error
	// FailPost makes PostToThread fail; callers must still commit.
	FailPost error

	Threads     []ThreadRequest
	ThreadPosts map[string][]string
	Cards       []TicketCard
	CardUpdates []CardUpdate

	nextThread int
}

var _ Notifier = (*FakeNotifier)(nil)

func (f *FakeNotifier) CreateMatchThread(_ context.Context, req ThreadRequest) (ThreadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailThreadCreate != nil {
		return ThreadResult{}, f.FailThreadCreate
	}
	f.nextThread++
	f.Threads = append(f.Threads, req)
	id := fmt.Sprintf("thread-%d", f.nextThread)
	return ThreadResult{
		Thread:           ThreadRef{ID: id, URL: "https://chat.example/" + id},
		CheckInMessageID: fmt.Sprintf("checkin-%d", f.nextThread),
	}, nil
}

func (f *FakeNotifier) PostToThread(_ context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailPost != nil {
		return f.FailPost
	}
	if f.ThreadPosts == nil {
		f.ThreadPosts = make(map[string][]string)
	}
	f.ThreadPosts[threadID] = append(f.ThreadPosts[threadID], content)
	return nil
}

func (f *FakeNotifier) PublishTicketCard(_ context.Context, card TicketCard) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cards = append(f.Cards, card)
	return MessageRef{ChannelID: "arbitration", MessageID: fmt.Sprintf("card-%d", len(f.Cards))}, nil
}

func (f *FakeNotifier) UpdateTicketCard(_ context.Context, _ MessageRef, update CardUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CardUpdates = append(f.CardUpdates, update)
	return nil
}

// FakeProofResolver resolves from a fixed URL→claim map.
type FakeProofResolver struct {
	Claims map[string]ProofClaim
}

var _ ProofResolver = (*FakeProofResolver)(nil)

func (f *FakeProofResolver) Resolve(_ context.Context, rawURL string) (ProofClaim, error) {
	claim, ok := f.Claims[rawURL]
	if !ok {
		return ProofClaim{}, fmt.Errorf("%w: %s", ErrProofUnresolved, rawURL)
	}
	return claim, nil
}
