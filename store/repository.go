// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-poll/auth"
	"github.com/danielhkuo/quickly-poll/models"
)

// Repository owns the poll lifecycle. Backend failures never reach the
// caller: the operation is retried against process memory and the returned
// Source says so.
type Repository struct {
	selector *Selector
	memory   *Memory
	log      *slog.Logger

	now       func() time.Time
	newPollID func() string
	newOptID  func() string
}

type RepositoryOption func(*Repository)

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) { r.now = now }
}

// WithIDs overrides poll and option id generation
func WithIDs(pollID, optionID func() string) RepositoryOption {
	return func(r *Repository) {
		r.newPollID = pollID
		r.newOptID = optionID
	}
}

func NewRepository(selector *Selector, memory *Memory, log *slog.Logger, opts ...RepositoryOption) *Repository {
	if memory == nil {
		memory = NewMemory()
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Repository{
		selector:  selector,
		memory:    memory,
		log:       log,
		now:       time.Now,
		newPollID: auth.NewPollID,
		newOptID:  auth.NewOptionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) backend(ctx context.Context) Backend {
	if r.selector == nil {
		return nil
	}
	return r.selector.Resolve(ctx)
}

// Selector exposes the backend selector for diagnostics
func (r *Repository) Selector() *Selector {
	return r.selector
}

// CreatePoll validates and stores a new poll. Blank options are dropped
// before the two-option minimum is checked.
func (r *Repository) CreatePoll(ctx context.Context, question string, optionTexts []string, creatorID, creatorName string) (*models.Poll, Source, error) {
	const op = "store.Repository.CreatePoll"

	if creatorID == "" {
		return nil, SourceMemory, ErrUnauthenticated
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, SourceMemory, ErrEmptyQuestion
	}

	texts := make([]string, 0, len(optionTexts))
	for _, t := range optionTexts {
		if t = strings.TrimSpace(t); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) < models.MinOptions {
		return nil, SourceMemory, ErrTooFewOptions
	}

	poll := &models.Poll{
		ID:          r.newPollID(),
		Question:    question,
		Options:     make([]models.PollOption, 0, len(texts)),
		CreatedAt:   r.now().UnixMilli(),
		Voters:      []string{},
		CreatorID:   creatorID,
		CreatorName: creatorName,
	}
	seen := make(map[string]bool, len(texts))
	for _, t := range texts {
		id := r.newOptID()
		for seen[id] {
			id = r.newOptID()
		}
		seen[id] = true
		poll.Options = append(poll.Options, models.PollOption{ID: id, Text: t})
	}

	log := r.log.With(slog.String("op", op), slog.String("poll_id", poll.ID))

	if b := r.backend(ctx); b != nil {
		err := b.Put(ctx, poll)
		if err == nil {
			log.Info("poll created", slog.String("source", SourceBackend.String()))
			return poll.Clone(), SourceBackend, nil
		}
		log.Warn("backend write failed, storing in memory", slog.Any("error", err))
		_ = r.memory.Put(ctx, poll)
		return poll.Clone(), SourceFallback, nil
	}

	_ = r.memory.Put(ctx, poll)
	log.Info("poll created", slog.String("source", SourceMemory.String()))
	return poll.Clone(), SourceMemory, nil
}

// GetPoll reads the poll. While a backend is configured, a copy held in
// process memory wins over the backend's: it was written there because a
// backend write failed, so the backend copy is stale.
func (r *Repository) GetPoll(ctx context.Context, id string) (*models.Poll, Source, error) {
	const op = "store.Repository.GetPoll"

	b := r.backend(ctx)
	if b == nil {
		poll, err := r.memory.Get(ctx, id)
		return poll, SourceMemory, err
	}

	if poll, err := r.memory.Get(ctx, id); err == nil {
		return poll, SourceFallback, nil
	}

	poll, err := b.Get(ctx, id)
	switch {
	case err == nil:
		return poll, SourceBackend, nil
	case errors.Is(err, ErrPollNotFound):
		return nil, SourceBackend, err
	default:
		r.log.Warn("backend read failed",
			slog.String("op", op), slog.String("poll_id", id), slog.Any("error", err))
		return nil, SourceFallback, ErrPollNotFound
	}
}

func applyVote(optionID, userID string) func(*models.Poll) error {
	return func(p *models.Poll) error {
		if p.HasVoted(userID) {
			return ErrAlreadyVoted
		}
		opt := p.Option(optionID)
		if opt == nil {
			return ErrOptionNotFound
		}
		opt.Votes++
		p.Voters = append(p.Voters, userID)
		return nil
	}
}

func isVoteRejection(err error) bool {
	return errors.Is(err, ErrAlreadyVoted) || errors.Is(err, ErrOptionNotFound)
}

// VotePoll records one vote for userID. A nil error means the vote was
// counted; otherwise the error says why not and nothing was changed.
func (r *Repository) VotePoll(ctx context.Context, pollID, optionID, userID string) (*models.Poll, Source, error) {
	const op = "store.Repository.VotePoll"

	if userID == "" {
		return nil, SourceMemory, ErrUnauthenticated
	}

	log := r.log.With(slog.String("op", op), slog.String("poll_id", pollID))
	vote := applyVote(optionID, userID)

	source := SourceMemory
	if b := r.backend(ctx); b != nil {
		source = SourceFallback
		if _, err := r.memory.Get(ctx, pollID); err != nil {
			poll, err := r.voteBackend(ctx, b, pollID, vote)
			switch {
			case err == nil:
				log.Info("vote recorded", slog.String("source", SourceBackend.String()))
				return poll, SourceBackend, nil
			case isVoteRejection(err), errors.Is(err, ErrConflict), errors.Is(err, ErrPollNotFound):
				return nil, SourceBackend, err
			default:
				log.Warn("backend vote failed, voting in memory", slog.Any("error", err))
			}
		}
	}

	poll, err := r.memory.Update(ctx, pollID, vote)
	if err != nil {
		return nil, source, err
	}
	log.Info("vote recorded", slog.String("source", source.String()))
	return poll, source, nil
}

// voteBackend votes through b.Update. When the backend read the record but
// could not commit, the record as read is seeded into memory so the vote
// can be retried there against the same voters.
func (r *Repository) voteBackend(ctx context.Context, b Backend, pollID string, vote func(*models.Poll) error) (*models.Poll, error) {
	var read *models.Poll
	poll, err := b.Update(ctx, pollID, func(p *models.Poll) error {
		read = p.Clone()
		return vote(p)
	})
	if err != nil && read != nil && !isVoteRejection(err) &&
		!errors.Is(err, ErrConflict) && !errors.Is(err, ErrPollNotFound) {
		r.memory.Seed(ctx, read)
	}
	return poll, err
}

// DeletePoll removes the poll from the backend and from memory. It never
// fails; backend errors are logged.
func (r *Repository) DeletePoll(ctx context.Context, id string) Source {
	const op = "store.Repository.DeletePoll"

	source := SourceMemory
	if b := r.backend(ctx); b != nil {
		source = SourceBackend
		if err := b.Delete(ctx, id); err != nil {
			r.log.Warn("backend delete failed",
				slog.String("op", op), slog.String("poll_id", id), slog.Any("error", err))
			source = SourceFallback
		}
	}
	_ = r.memory.Delete(ctx, id)

	r.log.Info("poll deleted", slog.String("poll_id", id), slog.String("source", source.String()))
	return source
}

// GetUserPolls lists the polls created by creatorID, newest first.
func (r *Repository) GetUserPolls(ctx context.Context, creatorID string) ([]models.Poll, Source, error) {
	const op = "store.Repository.GetUserPolls"

	if creatorID == "" {
		return nil, SourceMemory, ErrUnauthenticated
	}

	byID := make(map[string]models.Poll)
	source := SourceMemory

	if b := r.backend(ctx); b != nil {
		source = SourceBackend
		polls, err := b.ListByCreator(ctx, creatorID)
		if err != nil {
			r.log.Warn("backend listing failed, listing memory only",
				slog.String("op", op), slog.Any("error", err))
			source = SourceFallback
		}
		for _, p := range polls {
			byID[p.ID] = p
		}
	}

	// Memory copies are newer than the backend's, as in GetPoll
	mem, _ := r.memory.ListByCreator(ctx, creatorID)
	for _, p := range mem {
		byID[p.ID] = p
	}

	list := make([]models.Poll, 0, len(byID))
	for _, p := range byID {
		list = append(list, p)
	}
	SortNewestFirst(list)
	return list, source, nil
}

// GetAnalytics returns the per-option breakdown. Only the creator may see it.
func (r *Repository) GetAnalytics(ctx context.Context, pollID, requesterID string) (*models.PollAnalytics, error) {
	if requesterID == "" {
		return nil, ErrUnauthenticated
	}
	poll, _, err := r.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	return Analyze(poll), nil
}

// Analyze computes vote shares in option order. Percentages are rounded
// per option, so they need not sum to exactly 100.
func Analyze(poll *models.Poll) *models.PollAnalytics {
	total := poll.TotalVotes()
	a := &models.PollAnalytics{
		PollID:     poll.ID,
		Question:   poll.Question,
		TotalVotes: total,
		VoterCount: len(poll.Voters),
		Breakdown:  make([]models.OptionBreakdown, 0, len(poll.Options)),
		Leaders:    []string{},
		CreatedAt:  poll.CreatedAt,
	}

	best := 0
	for _, o := range poll.Options {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(o.Votes) / float64(total) * 100))
		}
		a.Breakdown = append(a.Breakdown, models.OptionBreakdown{
			OptionID: o.ID,
			Text:     o.Text,
			Votes:    o.Votes,
			Percent:  pct,
		})
		if o.Votes > best {
			best = o.Votes
		}
	}
	if best > 0 {
		for _, o := range poll.Options {
			if o.Votes == best {
				a.Leaders = append(a.Leaders, o.ID)
			}
		}
	}
	return a
}

// SortNewestFirst orders by createdAt descending, then id ascending
func SortNewestFirst(polls []models.Poll) {
	sort.Slice(polls, func(i, j int) bool {
		if polls[i].CreatedAt != polls[j].CreatedAt {
			return polls[i].CreatedAt > polls[j].CreatedAt
		}
		return polls[i].ID < polls[j].ID
	})
}
