package jobs_test

import (
	"net/url"
	"testing"

	"hiredup/internal/jobs"
)

func intPtr(v int) *int { return &v }

func sampleJobs() []jobs.Job {
	return []jobs.Job{
		{ID: "a", Title: "Senior Backend Engineer", Company: "Northwind", Location: "San Francisco, CA", Type: jobs.TypeFullTime, WorkSetting: jobs.SettingHybrid, ExperienceLevel: jobs.LevelSenior, Salary: "$150,000 - $190,000", Category: "Software Development", VisaType: jobs.VisaH1B},
		{ID: "b", Title: "Data Scientist", Company: "Contoso", Location: "New York, NY", Type: jobs.TypeFullTime, WorkSetting: jobs.SettingOnsite, ExperienceLevel: jobs.LevelMid, Salary: "$90,000 - $120,000", Category: "Data Science"},
		{ID: "c", Title: "Product Designer", Company: "Tailspin", Location: "Austin, TX", Type: jobs.TypePartTime, WorkSetting: jobs.SettingRemote, ExperienceLevel: jobs.LevelJunior, Salary: "$50,000", Category: "Design"},
		{ID: "d", Title: "ML Researcher", Company: "State Lab", Location: "Boston, MA", Type: jobs.TypeFullTime, WorkSetting: jobs.SettingOnsite, ExperienceLevel: jobs.LevelSenior, Salary: "Competitive", Category: "AI/ML", VisaType: jobs.VisaCapExempt},
	}
}

func ids(list []jobs.Job) []string {
	out := make([]string, 0, len(list))
	for _, j := range list {
		out = append(out, j.ID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestMatches_DefaultCriteriaMatchesEverything(t *testing.T) {
	for _, job := range sampleJobs() {
		if !jobs.Matches(job, jobs.DefaultCriteria()) {
			t.Errorf("default criteria excluded job %s", job.ID)
		}
	}
	// 清空筛选后选择器为空字符串，也应视为不限。
	for _, job := range sampleJobs() {
		if !jobs.Matches(job, jobs.Criteria{}) {
			t.Errorf("zero criteria excluded job %s", job.ID)
		}
	}
}

func TestSearch_QueryMatchesTitleOrCompanyCaseInsensitive(t *testing.T) {
	c := jobs.DefaultCriteria()
	c.Query = "ENGINEER"
	if got := ids(jobs.Search(sampleJobs(), c)); !equalIDs(got, []string{"a"}) {
		t.Fatalf("title query = %v, want [a]", got)
	}

	c.Query = "contoso"
	if got := ids(jobs.Search(sampleJobs(), c)); !equalIDs(got, []string{"b"}) {
		t.Fatalf("company query = %v, want [b]", got)
	}
}

func TestSearch_LocationSubstring(t *testing.T) {
	c := jobs.DefaultCriteria()
	c.Location = "ny"
	got := ids(jobs.Search(sampleJobs(), c))
	if !equalIDs(got, []string{"b"}) {
		t.Fatalf("location search = %v, want [b]", got)
	}
}

func TestSearch_ExactSelectors(t *testing.T) {
	cases := []struct {
		name string
		set  func(*jobs.Criteria)
		want []string
	}{
		{"type", func(c *jobs.Criteria) { c.Type = jobs.TypePartTime }, []string{"c"}},
		{"experience", func(c *jobs.Criteria) { c.ExperienceLevel = jobs.LevelSenior }, []string{"a", "d"}},
		{"setting", func(c *jobs.Criteria) { c.WorkSetting = jobs.SettingOnsite }, []string{"b", "d"}},
		{"visa", func(c *jobs.Criteria) { c.VisaType = jobs.VisaCapExempt }, []string{"d"}},
		{"category", func(c *jobs.Criteria) { c.Category = "Design" }, []string{"c"}},
		{"combined", func(c *jobs.Criteria) {
			c.ExperienceLevel = jobs.LevelSenior
			c.WorkSetting = jobs.SettingHybrid
		}, []string{"a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := jobs.DefaultCriteria()
			tc.set(&c)
			if got := ids(jobs.Search(sampleJobs(), c)); !equalIDs(got, tc.want) {
				t.Fatalf("search = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSearch_AbsentSelectorValueReturnsEmpty(t *testing.T) {
	c := jobs.DefaultCriteria()
	c.Category = "Underwater Basket Weaving"
	if got := jobs.Search(sampleJobs(), c); len(got) != 0 {
		t.Fatalf("expected no results, got %v", ids(got))
	}
}

func TestSearch_PreservesInputOrder(t *testing.T) {
	list := sampleJobs()
	list[0], list[3] = list[3], list[0]
	got := ids(jobs.Search(list, jobs.DefaultCriteria()))
	if !equalIDs(got, []string{"d", "b", "c", "a"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestMatches_Salary(t *testing.T) {
	cases := []struct {
		name   string
		salary string
		min    *int
		max    *int
		want   bool
	}{
		{"range overlaps min", "$90,000 - $120,000", intPtr(100000), nil, true},
		{"single below min", "$50,000", intPtr(60000), nil, false},
		{"single above max", "$50,000", nil, intPtr(40000), false},
		{"single inside bounds", "$50,000", intPtr(40000), intPtr(60000), true},
		{"range low above max", "$90,000 - $120,000", nil, intPtr(80000), false},
		{"unparseable passes", "Competitive", intPtr(60000), nil, true},
		{"unparseable passes max", "Competitive", nil, intPtr(10), true},
		{"dangling hyphen passes", "50,000-", intPtr(900000), nil, true},
		{"no bounds", "$1", nil, nil, true},
		{"hourly range compared literally", "$30 - $40 per hour", intPtr(35), nil, true},
		{"k suffix is not expanded", "$90k - $120k", intPtr(60000), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := jobs.DefaultCriteria()
			c.MinSalary = tc.min
			c.MaxSalary = tc.max
			if got := jobs.Matches(jobs.Job{ID: "x", Salary: tc.salary}, c); got != tc.want {
				t.Fatalf("Matches(salary=%q) = %v, want %v", tc.salary, got, tc.want)
			}
		})
	}
}

func TestParseSalary(t *testing.T) {
	cases := []struct {
		in        string
		low, high int64
		ok        bool
	}{
		{"$150,000 - $190,000", 150000, 190000, true},
		{"$50,000", 50000, 50000, true},
		{"$95/hr", 95, 95, true},
		{"Competitive", 0, 0, false},
		{"", 0, 0, false},
		{"-5", 0, 5, false},
		{"10-20-30", 10, 20, true},
	}
	for _, tc := range cases {
		low, high, ok := jobs.ParseSalary(tc.in)
		if ok != tc.ok || (ok && (low != tc.low || high != tc.high)) {
			t.Errorf("ParseSalary(%q) = (%d, %d, %v), want (%d, %d, %v)", tc.in, low, high, ok, tc.low, tc.high, tc.ok)
		}
	}
}

func TestCriteriaFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("query", " engineer ")
	values.Set("category", "DevOps")
	values.Set("min_salary", "80000")
	values.Set("max_salary", "lots")

	c := jobs.CriteriaFromQuery(values)
	if c.Query != "engineer" {
		t.Errorf("Query = %q", c.Query)
	}
	if c.Category != "DevOps" {
		t.Errorf("Category = %q", c.Category)
	}
	if c.Type != jobs.All || c.WorkSetting != jobs.All {
		t.Errorf("unset selectors should be %q, got type=%q setting=%q", jobs.All, c.Type, c.WorkSetting)
	}
	if c.MinSalary == nil || *c.MinSalary != 80000 {
		t.Errorf("MinSalary = %v", c.MinSalary)
	}
	if c.MaxSalary != nil {
		t.Errorf("MaxSalary should be unset for unparseable input, got %d", *c.MaxSalary)
	}
}
