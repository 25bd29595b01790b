package backend

import "time"

// Page is the list envelope used by every paginated endpoint.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type Author struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
	PaperCount  int    `json:"paperCount,omitempty"`
	HIndex      int    `json:"hIndex,omitempty"`
}

type Paper struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Abstract      string    `json:"abstract,omitempty"`
	Authors       []Author  `json:"authors,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Status        string    `json:"status,omitempty"`
	Version       int       `json:"version,omitempty"`
	DOI           string    `json:"doi,omitempty"`
	URL           string    `json:"url,omitempty"`
	Venue         string    `json:"venue,omitempty"`
	Year          int       `json:"year,omitempty"`
	CitationCount int       `json:"citationCount,omitempty"`
	ReviewCount   int       `json:"reviewCount,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

type PaperVersion struct {
	Version   int       `json:"version"`
	Title     string    `json:"title"`
	Changelog string    `json:"changelog,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type PaperStats struct {
	PaperID       string  `json:"paperId"`
	Views         int     `json:"views"`
	Downloads     int     `json:"downloads"`
	Citations     int     `json:"citations"`
	Reviews       int     `json:"reviews"`
	AverageRating float64 `json:"averageRating"`
}

type Review struct {
	ID             string    `json:"id"`
	PaperID        string    `json:"paperId"`
	ReviewerID     string    `json:"reviewerId,omitempty"`
	ReviewerName   string    `json:"reviewerName,omitempty"`
	Rating         int       `json:"rating"`
	Recommendation string    `json:"recommendation,omitempty"`
	Body           string    `json:"body,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitzero"`
}

type ReviewRequest struct {
	ID         string    `json:"id"`
	PaperID    string    `json:"paperId"`
	ReviewerID string    `json:"reviewerId,omitempty"`
	Status     string    `json:"status"`
	DueAt      time.Time `json:"dueAt,omitzero"`
}

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Affiliation string    `json:"affiliation,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	PaperCount  int       `json:"paperCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

type Listing struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	SellerID     string    `json:"sellerId,omitempty"`
	PaperID      string    `json:"paperId,omitempty"`
	PriceCredits int       `json:"priceCredits"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

type Purchase struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"listingId"`
	PriceCredits int       `json:"priceCredits"`
	BalanceAfter int       `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

type CreditBalance struct {
	UserID    string    `json:"userId,omitempty"`
	Balance   int       `json:"balance"`
	Reserved  int       `json:"reserved,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

type CreditTransaction struct {
	ID          string    `json:"id"`
	Amount      int       `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}
