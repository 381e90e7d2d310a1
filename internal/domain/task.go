package domain

// Task is one user's standing buy instruction: which messages to listen to
// and how to buy when a confirmed token appears in them. Owned by exactly
// one user and mutated only through explicit create/update/delete.
type Task struct {
	TaskID  string // PRIMARY KEY
	OwnerID string
	Name    string // unique per owner

	Platform  Platform
	ChannelID string   // empty = no channel restriction
	AuthorIDs []string // empty = any author

	BuyAmountSOL    float64
	SlippagePercent int
	PriorityFeeSOL  float64
	BlacklistWords  []string

	WalletAddress string
	WalletLabel   string

	InformOnly bool // match and record, but emit a notification instead of a buy
	Enabled    bool

	CreatedAt int64 // Unix timestamp in milliseconds
	UpdatedAt int64
}

// HasAuthorFilter reports whether the task restricts by author.
func (t *Task) HasAuthorFilter() bool {
	return len(t.AuthorIDs) > 0
}

// AllowsAuthor reports whether authorID passes the task's author filter.
func (t *Task) AllowsAuthor(authorID string) bool {
	if len(t.AuthorIDs) == 0 {
		return true
	}
	for _, id := range t.AuthorIDs {
		if id == authorID {
			return true
		}
	}
	return false
}
