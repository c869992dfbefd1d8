package models

// Storage source values reported back to clients
const (
	SourceBackend  = "backend"
	SourceMemory   = "memory"
	SourceFallback = "fallback"
)

// MinOptions is the smallest number of options a poll can be created with
const MinOptions = 2

// Domain types
//
// Poll and PollOption are the persisted record. Their JSON layout is the one
// the web client has always written to the key-value store, so field names
// stay camelCase here while the API types below use snake_case.

type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	ID          string       `json:"id"`
	Question    string       `json:"question"`
	Options     []PollOption `json:"options"`
	CreatedAt   int64        `json:"createdAt"` // epoch milliseconds
	Voters      []string     `json:"voters"`
	CreatorID   string       `json:"creatorId"`
	CreatorName string       `json:"creatorName"`
}

// Clone returns a deep copy so callers never share option or voter slices
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	c := *p
	c.Options = append([]PollOption(nil), p.Options...)
	c.Voters = append([]string(nil), p.Voters...)
	if c.Voters == nil {
		c.Voters = []string{}
	}
	return &c
}

// HasVoted reports whether userID is already recorded as a voter
func (p *Poll) HasVoted(userID string) bool {
	for _, v := range p.Voters {
		if v == userID {
			return true
		}
	}
	return false
}

// Option returns the option with the given id, or nil
func (p *Poll) Option(optionID string) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

// TotalVotes sums the option counters
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type VoteRequest struct {
	OptionID string `json:"option_id"`
}

// Response types

type CreatePollResponse struct {
	PollID  string `json:"poll_id"`
	Storage string `json:"storage"`
}

type OptionView struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollView is the public shape of a poll. Voter and creator ids stay private.
type PollView struct {
	ID          string       `json:"id"`
	Question    string       `json:"question"`
	Options     []OptionView `json:"options"`
	CreatedAt   int64        `json:"created_at"`
	CreatorName string       `json:"creator_name"`
	TotalVotes  int          `json:"total_votes"`
	HasVoted    bool         `json:"has_voted"`
	IsCreator   bool         `json:"is_creator"`
}

type VoteResponse struct {
	Poll    PollView `json:"poll"`
	Storage string   `json:"storage"`
}

type PollSummary struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	TotalVotes int    `json:"total_votes"`
	CreatedAt  int64  `json:"created_at"`
}

type MyPollsResponse struct {
	Polls   []PollSummary `json:"polls"`
	Storage string        `json:"storage"`
}

type OptionBreakdown struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
	Percent  int    `json:"percent"`
}

type PollAnalytics struct {
	PollID     string            `json:"poll_id"`
	Question   string            `json:"question"`
	TotalVotes int               `json:"total_votes"`
	VoterCount int               `json:"voter_count"`
	Breakdown  []OptionBreakdown `json:"breakdown"`
	Leaders    []string          `json:"leaders"`
	CreatedAt  int64             `json:"created_at"`
}

type ProfileStatus struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Configured bool   `json:"configured"`
}

type BackendStatus struct {
	Resolved      bool            `json:"resolved"`
	ActiveProfile string          `json:"active_profile,omitempty"`
	Backend       string          `json:"backend"`
	Profiles      []ProfileStatus `json:"profiles"`
	Ping          string          `json:"ping"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewPollView projects a poll for the given viewer (empty for anonymous)
func NewPollView(p *Poll, viewerID string) PollView {
	view := PollView{
		ID:          p.ID,
		Question:    p.Question,
		Options:     make([]OptionView, 0, len(p.Options)),
		CreatedAt:   p.CreatedAt,
		CreatorName: p.CreatorName,
		TotalVotes:  p.TotalVotes(),
	}
	for _, o := range p.Options {
		view.Options = append(view.Options, OptionView{ID: o.ID, Text: o.Text, Votes: o.Votes})
	}
	if viewerID != "" {
		view.HasVoted = p.HasVoted(viewerID)
		view.IsCreator = p.CreatorID == viewerID
	}
	return view
}

// NewPollSummary is the dashboard card for a poll
func NewPollSummary(p *Poll) PollSummary {
	return PollSummary{
		ID:         p.ID,
		Question:   p.Question,
		TotalVotes: len(p.Voters),
		CreatedAt:  p.CreatedAt,
	}
}
