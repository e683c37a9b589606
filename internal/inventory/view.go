package inventory

import (
	"strings"

	"github.com/erazemk/popis/internal/model"
)

// NoticeLevel is the severity of a notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a non-blocking message for the user.
type Notice struct {
	Level   NoticeLevel
	Message string
}

func (c *Controller) notify(level NoticeLevel, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, Notice{Level: level, Message: msg})
}

// TakeNotices returns the queued notices and clears the queue.
func (c *Controller) TakeNotices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.notices
	c.notices = nil
	return n
}

// Summary holds totals over the whole list.
type Summary struct {
	Records   int
	QtyTotal  int
	QtyUsed   int
	QtyExcess int
}

// View is a snapshot of everything the page renders.
type View struct {
	Items   []model.InventoryRecord
	Search  string
	Form    Form
	Summary Summary
	Image   string
	Busy    bool
}

// View returns a copy of the current state with the search applied.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Items:   filter(c.items, c.search),
		Search:  c.search,
		Form:    c.form.clone(),
		Summary: summarize(c.items),
		Image:   c.image,
		Busy:    len(c.inflight) > 0,
	}
}

// SetSearch sets the search term used by View.
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = term
}

// Search returns the records whose type, description or status contain term,
// ignoring case. An empty term matches everything. The store is not consulted.
func (c *Controller) Search(term string) []model.InventoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return filter(c.items, term)
}

// Records returns a copy of the full list.
func (c *Controller) Records() []model.InventoryRecord {
	return c.Search("")
}

// Summary returns totals over the full list, ignoring the search.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summarize(c.items)
}

// ViewImage opens the image viewer on url, replacing any open image.
func (c *Controller) ViewImage(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = url
}

// CloseImage closes the image viewer.
func (c *Controller) CloseImage() {
	c.ViewImage("")
}

func filter(items []model.InventoryRecord, term string) []model.InventoryRecord {
	term = strings.ToLower(term)
	out := make([]model.InventoryRecord, 0, len(items))
	for _, rec := range items {
		if term == "" ||
			strings.Contains(strings.ToLower(rec.Type), term) ||
			strings.Contains(strings.ToLower(rec.Description), term) ||
			strings.Contains(strings.ToLower(string(rec.Status)), term) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func summarize(items []model.InventoryRecord) Summary {
	s := Summary{Records: len(items)}
	for _, rec := range items {
		s.QtyTotal += rec.QtyTotal
		s.QtyUsed += rec.QtyUsed
		s.QtyExcess += rec.QtyExcess
	}
	return s
}
