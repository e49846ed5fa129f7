package jobs

import (
	"strings"
	"sync"
)

// Catalog holds the full, unfiltered job list. Readers never see a partially
// replaced list.
type Catalog struct {
	mu    sync.RWMutex
	jobs  []Job
	index map[string]int
}

// NewCatalog builds a catalog over list. Later entries reusing an ID are dropped.
func NewCatalog(list []Job) *Catalog {
	c := &Catalog{}
	c.Replace(list)
	return c
}

// Replace 原子替换目录内容，并返回实际保留的职位数量。
func (c *Catalog) Replace(list []Job) int {
	kept := make([]Job, 0, len(list))
	index := make(map[string]int, len(list))
	for _, job := range list {
		if _, dup := index[job.ID]; dup {
			continue
		}
		index[job.ID] = len(kept)
		kept = append(kept, job)
	}

	c.mu.Lock()
	c.jobs = kept
	c.index = index
	c.mu.Unlock()
	return len(kept)
}

// All returns a copy of every job in catalog order.
func (c *Catalog) All() []Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.jobs)
}

// Get looks a job up by ID.
func (c *Catalog) Get(id string) (Job, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Job{}, false
	}
	return c.jobs[i], true
}

// Search evaluates criteria against the current catalog.
func (c *Catalog) Search(criteria Criteria) []Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Search(c.jobs, criteria)
}

// Similar 返回与 job 同类别、或标题包含 job 标题首个单词的其他职位，最多 limit 个。
func (c *Catalog) Similar(job Job, limit int) []Job {
	if limit <= 0 {
		return nil
	}
	firstWord := strings.Split(job.Title, " ")[0]

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Job
	for _, other := range c.jobs {
		if other.ID == job.ID {
			continue
		}
		if other.Category == job.Category || strings.Contains(other.Title, firstWord) {
			out = append(out, other)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Categories lists distinct non-empty categories in first-seen order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, job := range c.jobs {
		if job.Category == "" {
			continue
		}
		if _, ok := seen[job.Category]; ok {
			continue
		}
		seen[job.Category] = struct{}{}
		out = append(out, job.Category)
	}
	return out
}
