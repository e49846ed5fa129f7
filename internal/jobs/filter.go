package jobs

import (
	"net/url"
	"strconv"
	"strings"
)

// All 是精确匹配筛选项的"不限"取值。空字符串同样视为不限。
const All = "all"

// Criteria describes one filter interaction. It is a value: callers build a
// new one for every change instead of mutating a shared instance.
type Criteria struct {
	Query           string `json:"query"`
	Location        string `json:"location"`
	Type            string `json:"job_type"`
	ExperienceLevel string `json:"experience_level"`
	WorkSetting     string `json:"work_setting"`
	VisaType        string `json:"h1Type"`
	Category        string `json:"job_category"`
	MinSalary       *int   `json:"min_salary,omitempty"`
	MaxSalary       *int   `json:"max_salary,omitempty"`
}

// DefaultCriteria returns criteria that match every job.
func DefaultCriteria() Criteria {
	return Criteria{
		Type:            All,
		ExperienceLevel: All,
		WorkSetting:     All,
		VisaType:        All,
		Category:        All,
	}
}

// CriteriaFromQuery 根据 URL 查询参数构造筛选条件，无法解析的薪资上下限视为未设置。
func CriteriaFromQuery(values url.Values) Criteria {
	c := DefaultCriteria()
	c.Query = strings.TrimSpace(values.Get("query"))
	c.Location = strings.TrimSpace(values.Get("location"))
	selector := func(key string) string {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			return v
		}
		return All
	}
	c.Type = selector("type")
	c.ExperienceLevel = selector("experience")
	c.WorkSetting = selector("setting")
	c.VisaType = selector("visa")
	c.Category = selector("category")
	c.MinSalary = optionalInt(values.Get("min_salary"))
	c.MaxSalary = optionalInt(values.Get("max_salary"))
	return c
}

func optionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// Matches reports whether job satisfies every active predicate in c.
func Matches(job Job, c Criteria) bool {
	return matchesQuery(job, c.Query) &&
		containsFold(job.Location, c.Location) &&
		matchesExact(job.Type, c.Type) &&
		matchesExact(job.ExperienceLevel, c.ExperienceLevel) &&
		matchesExact(job.WorkSetting, c.WorkSetting) &&
		matchesExact(job.VisaType, c.VisaType) &&
		matchesExact(job.Category, c.Category) &&
		matchesSalary(job.Salary, c.MinSalary, c.MaxSalary)
}

// Search returns the jobs matching c in their input order.
func Search(list []Job, c Criteria) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		if Matches(job, c) {
			out = append(out, job)
		}
	}
	return out
}

func matchesQuery(job Job, query string) bool {
	if query == "" {
		return true
	}
	return containsFold(job.Title, query) || containsFold(job.Company, query)
}

// containsFold 为空 needle 返回 true。
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchesExact(value, want string) bool {
	if want == "" || want == All {
		return true
	}
	return value == want
}

// matchesSalary fails open: a salary that cannot be parsed is never excluded.
func matchesSalary(salary string, min, max *int) bool {
	if min == nil && max == nil {
		return true
	}
	low, high, ok := ParseSalary(salary)
	if !ok {
		return true
	}
	if min != nil && high < int64(*min) {
		return false
	}
	if max != nil && low > int64(*max) {
		return false
	}
	return true
}

// ParseSalary extracts a (low, high) pair from free-form salary text.
//
// Everything except digits and '-' is dropped. With a '-' the first two parts
// are low and high; otherwise the single number is both. Each part is read as
// its leading run of digits, and an empty run means ok is false.
func ParseSalary(text string) (low, high int64, ok bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if strings.Contains(cleaned, "-") {
		parts := strings.Split(cleaned, "-")
		lowOK, highOK := false, false
		low, lowOK = leadingInt(parts[0])
		high, highOK = leadingInt(parts[1])
		return low, high, lowOK && highOK
	}

	n, ok := leadingInt(cleaned)
	return n, n, ok
}

func leadingInt(s string) (int64, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
