// Package format renders backend records as compact markdown for tool
// results.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
)

const (
	dateLayout      = "2006-01-02"
	abstractPreview = 280
)

// Markdown converts HTML fragments (abstracts and review bodies are stored as
// HTML) into markdown. Plain text passes through trimmed.
func Markdown(s string) string {
	s = strings.TrimSpace(s)
	if !looksLikeHTML(s) {
		return s
	}
	out, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}

func looksLikeHTML(s string) bool {
	i := strings.IndexByte(s, '<')
	return i >= 0 && strings.IndexByte(s[i:], '>') > 0
}

// Truncate shortens s to n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}

func Date(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(dateLayout)
}

func AuthorNames(authors []backend.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "unknown authors"
	}
	return strings.Join(names, ", ")
}

// PaperLine renders one paper as a list item.
func PaperLine(p backend.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **%s** (`%s`)", strings.TrimSpace(p.Title), p.ID)
	if p.Year > 0 {
		fmt.Fprintf(&b, ", %d", p.Year)
	}
	fmt.Fprintf(&b, "\n  %s", AuthorNames(p.Authors))
	if p.Status != "" {
		fmt.Fprintf(&b, " · %s", p.Status)
	}
	if p.CitationCount > 0 {
		fmt.Fprintf(&b, " · %d citations", p.CitationCount)
	}
	if abstract := Markdown(p.Abstract); abstract != "" {
		fmt.Fprintf(&b, "\n  %s", Truncate(strings.Join(strings.Fields(abstract), " "), abstractPreview))
	}
	return b.String()
}

func PaperList(heading string, papers []backend.Paper, total int) string {
	if len(papers) == 0 {
		return heading + "\n\nNo papers found."
	}
	lines := make([]string, 0, len(papers)+1)
	lines = append(lines, fmt.Sprintf("%s (%s)\n", heading, countOf(len(papers), total)))
	for _, p := range papers {
		lines = append(lines, PaperLine(p))
	}
	return strings.Join(lines, "\n")
}

func PaperDetail(p backend.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(p.Title))
	field(&b, "ID", p.ID)
	field(&b, "Authors", AuthorNames(p.Authors))
	field(&b, "Status", p.Status)
	if p.Version > 0 {
		field(&b, "Version", fmt.Sprintf("v%d", p.Version))
	}
	field(&b, "Venue", p.Venue)
	if p.Year > 0 {
		field(&b, "Year", fmt.Sprintf("%d", p.Year))
	}
	field(&b, "DOI", p.DOI)
	field(&b, "URL", p.URL)
	if len(p.Tags) > 0 {
		field(&b, "Tags", strings.Join(p.Tags, ", "))
	}
	field(&b, "Citations", fmt.Sprintf("%d", p.CitationCount))
	field(&b, "Reviews", fmt.Sprintf("%d", p.ReviewCount))
	if !p.UpdatedAt.IsZero() {
		field(&b, "Updated", Date(p.UpdatedAt))
	}
	if abstract := Markdown(p.Abstract); abstract != "" {
		fmt.Fprintf(&b, "\n## Abstract\n\n%s\n", abstract)
	}
	return strings.TrimSpace(b.String())
}

func PaperVersions(paperID string, versions []backend.PaperVersion) string {
	if len(versions) == 0 {
		return fmt.Sprintf("Paper `%s` has no recorded versions.", paperID)
	}
	lines := []string{fmt.Sprintf("Versions of `%s`:\n", paperID)}
	for _, v := range versions {
		line := fmt.Sprintf("- v%d · %s · %s", v.Version, Date(v.CreatedAt), strings.TrimSpace(v.Title))
		if note := strings.TrimSpace(v.Changelog); note != "" {
			line += "\n  " + note
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func PaperStats(s backend.PaperStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statistics for `%s`\n\n", s.PaperID)
	field(&b, "Views", fmt.Sprintf("%d", s.Views))
	field(&b, "Downloads", fmt.Sprintf("%d", s.Downloads))
	field(&b, "Citations", fmt.Sprintf("%d", s.Citations))
	field(&b, "Reviews", fmt.Sprintf("%d", s.Reviews))
	field(&b, "Average rating", fmt.Sprintf("%.1f", s.AverageRating))
	return strings.TrimSpace(b.String())
}

func AuthorList(authors []backend.Author, total int) string {
	if len(authors) == 0 {
		return "No authors found."
	}
	lines := []string{fmt.Sprintf("Authors (%s)\n", countOf(len(authors), total))}
	for _, a := range authors {
		line := "- **" + strings.TrimSpace(a.Name) + "**"
		if a.ID != "" {
			line += " (`" + a.ID + "`)"
		}
		if a.Affiliation != "" {
			line += ", " + a.Affiliation
		}
		if a.PaperCount > 0 {
			line += fmt.Sprintf(" · %d papers", a.PaperCount)
		}
		if a.HIndex > 0 {
			line += fmt.Sprintf(" · h-index %d", a.HIndex)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func Review(r backend.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review `%s` on paper `%s`\n\n", r.ID, r.PaperID)
	field(&b, "Reviewer", firstNonEmpty(r.ReviewerName, r.ReviewerID, "anonymous"))
	field(&b, "Rating", fmt.Sprintf("%d/5", r.Rating))
	field(&b, "Recommendation", r.Recommendation)
	if !r.CreatedAt.IsZero() {
		field(&b, "Submitted", Date(r.CreatedAt))
	}
	if body := Markdown(r.Body); body != "" {
		fmt.Fprintf(&b, "\n%s\n", body)
	}
	return strings.TrimSpace(b.String())
}

func ReviewList(paperID string, reviews []backend.Review, total int) string {
	if len(reviews) == 0 {
		return fmt.Sprintf("Paper `%s` has no reviews yet.", paperID)
	}
	lines := []string{fmt.Sprintf("Reviews for `%s` (%s)\n", paperID, countOf(len(reviews), total))}
	for _, r := range reviews {
		line := fmt.Sprintf("- `%s` · %d/5 · %s", r.ID, r.Rating, firstNonEmpty(r.ReviewerName, r.ReviewerID, "anonymous"))
		if r.Recommendation != "" {
			line += " · " + r.Recommendation
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func User(u backend.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", firstNonEmpty(u.Name, u.Username, u.ID))
	field(&b, "ID", u.ID)
	field(&b, "Username", u.Username)
	field(&b, "Email", u.Email)
	field(&b, "Affiliation", u.Affiliation)
	if len(u.Roles) > 0 {
		field(&b, "Roles", strings.Join(u.Roles, ", "))
	}
	if u.PaperCount > 0 {
		field(&b, "Papers", fmt.Sprintf("%d", u.PaperCount))
	}
	if !u.CreatedAt.IsZero() {
		field(&b, "Joined", Date(u.CreatedAt))
	}
	if bio := Markdown(u.Bio); bio != "" {
		fmt.Fprintf(&b, "\n%s\n", bio)
	}
	return strings.TrimSpace(b.String())
}

func ListingList(listings []backend.Listing, total int) string {
	if len(listings) == 0 {
		return "No marketplace listings found."
	}
	lines := []string{fmt.Sprintf("Marketplace listings (%s)\n", countOf(len(listings), total))}
	for _, l := range listings {
		line := fmt.Sprintf("- **%s** (`%s`) · %d credits", strings.TrimSpace(l.Title), l.ID, l.PriceCredits)
		if l.Kind != "" {
			line += " · " + l.Kind
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func Listing(l backend.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(l.Title))
	field(&b, "ID", l.ID)
	field(&b, "Kind", l.Kind)
	field(&b, "Price", fmt.Sprintf("%d credits", l.PriceCredits))
	field(&b, "Seller", l.SellerID)
	field(&b, "Paper", l.PaperID)
	if desc := Markdown(l.Description); desc != "" {
		fmt.Fprintf(&b, "\n%s\n", desc)
	}
	return strings.TrimSpace(b.String())
}

func Purchase(p backend.Purchase) string {
	return fmt.Sprintf("Purchased listing `%s` for %d credits (purchase `%s`). Remaining balance: %d credits.",
		p.ListingID, p.PriceCredits, p.ID, p.BalanceAfter)
}

func CreditBalance(c backend.CreditBalance) string {
	text := fmt.Sprintf("Credit balance: %d credits", c.Balance)
	if c.Reserved > 0 {
		text += fmt.Sprintf(" (%d reserved)", c.Reserved)
	}
	if !c.UpdatedAt.IsZero() {
		text += ", as of " + Date(c.UpdatedAt)
	}
	return text + "."
}

func CreditTransactions(txs []backend.CreditTransaction, total int) string {
	if len(txs) == 0 {
		return "No credit transactions."
	}
	lines := []string{fmt.Sprintf("Credit transactions (%s)\n", countOf(len(txs), total))}
	for _, tx := range txs {
		line := fmt.Sprintf("- %s · %+d · %s", Date(tx.CreatedAt), tx.Amount, tx.Kind)
		if tx.Description != "" {
			line += " · " + tx.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func countOf(shown, total int) string {
	if total > shown {
		return fmt.Sprintf("showing %d of %d", shown, total)
	}
	return fmt.Sprintf("%d", shown)
}

func field(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
