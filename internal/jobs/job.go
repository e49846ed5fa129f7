// Package jobs holds the job catalog and the filter predicates evaluated over it.
package jobs

import "errors"

// ErrJobNotFound 表示目录中不存在指定 ID 的职位。
var ErrJobNotFound = errors.New("job not found")

// 职位类型、工作方式与经验级别的取值与数据集保持一致。
const (
	TypeFullTime   = "Full-time"
	TypePartTime   = "Part-time"
	TypeContract   = "Contract"
	TypeInternship = "Internship"

	SettingRemote = "Remote"
	SettingOnsite = "Onsite"
	SettingHybrid = "Hybrid"

	LevelEntry  = "Entry-level"
	LevelJunior = "Junior"
	LevelMid    = "Mid-level"
	LevelSenior = "Senior"

	VisaH1B       = "H-1B"
	VisaCapExempt = "Cap-Exempt"
)

// Job is a single posting. Values are created by a Source at load time and
// never mutated afterwards.
type Job struct {
	ID              string `json:"id" yaml:"id"`
	Title           string `json:"job_title" yaml:"job_title"`
	Company         string `json:"company" yaml:"company"`
	Location        string `json:"job_location" yaml:"job_location"`
	Type            string `json:"job_type" yaml:"job_type"`
	WorkSetting     string `json:"work_setting" yaml:"work_setting"`
	ExperienceLevel string `json:"experience_level" yaml:"experience_level"`
	Experience      string `json:"experience" yaml:"experience"`
	Salary          string `json:"salary" yaml:"salary"`
	Category        string `json:"job_category" yaml:"job_category"`
	VisaType        string `json:"h1Type" yaml:"h1Type"`
	DatePosted      string `json:"date_posted" yaml:"date_posted"`
	Link            string `json:"job_link" yaml:"job_link"`
	Description     string `json:"full_description" yaml:"full_description"`
}
