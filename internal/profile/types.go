package profile

import "time"

// Profile is the structured résumé behind one digital twin: who the
// candidate is, what they are aiming for, and what they have done.
type Profile struct {
	BasicInfo       BasicInfo       `json:"basic_info"`
	CareerObjective CareerObjective `json:"career_objective"`
	WorkExperience  []WorkExperience `json:"work_experience"`
	Projects        []ProjectEntry   `json:"projects"`
	Skills          Skills           `json:"skills"`
	Education       []Education      `json:"education"`
	Certifications  []string         `json:"certifications"`
	Personality     Personality      `json:"personality"`
	Languages       []Language       `json:"languages"`
}

// BasicInfo captures identity and contact details.
type BasicInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Location string `json:"location"`
}

// CareerObjective captures what the candidate is looking for.
type CareerObjective struct {
	TargetPosition    string   `json:"target_position"`
	TargetIndustry    string   `json:"target_industry"`
	TargetRoleTypes   []string `json:"target_role_types"`
	PreferredLocation string   `json:"preferred_location"`
	CareerGoals       string   `json:"career_goals"`
}

// Skill is a single named skill with a 1–5 proficiency level and years of use.
type Skill struct {
	Name  string  `json:"name"`
	Level int     `json:"level"`
	Years float64 `json:"years"`
}

// Skills groups skills into a fixed set of categories. Every category is
// always present (possibly empty), so consumers never probe for optional
// fields.
type Skills struct {
	ProgrammingLanguages []Skill `json:"programming_languages"`
	AIMLFrameworks       []Skill `json:"ai_ml_frameworks"`
	BackendFrameworks    []Skill `json:"backend_frameworks"`
	FrontendFrameworks   []Skill `json:"frontend_frameworks"`
	Databases            []Skill `json:"databases"`
	CloudDevOps          []Skill `json:"cloud_devops"`
	VersionControl       []Skill `json:"version_control"`
	AISpecialties        []Skill `json:"ai_specialties"`
	DomainKnowledge      []Skill `json:"domain_knowledge"`
}

// SkillCategory pairs a category's display label with its skills.
type SkillCategory struct {
	Label  string
	Skills []Skill
}

// Categories returns all skill categories in a fixed display order.
// Empty categories are included; callers decide whether to skip them.
func (s Skills) Categories() []SkillCategory {
	return []SkillCategory{
		{Label: "Programming languages", Skills: s.ProgrammingLanguages},
		{Label: "AI/ML frameworks", Skills: s.AIMLFrameworks},
		{Label: "Backend frameworks", Skills: s.BackendFrameworks},
		{Label: "Frontend frameworks", Skills: s.FrontendFrameworks},
		{Label: "Databases", Skills: s.Databases},
		{Label: "Cloud/DevOps", Skills: s.CloudDevOps},
		{Label: "Version control", Skills: s.VersionControl},
		{Label: "AI specialties", Skills: s.AISpecialties},
		{Label: "Domain knowledge", Skills: s.DomainKnowledge},
	}
}

// WorkExperience is one employment entry.
type WorkExperience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	Duration         string   `json:"duration"`
	Responsibilities []string `json:"responsibilities"`
	Technologies     []string `json:"technologies"`
	Achievements     []string `json:"achievements"`
}

// ProjectEntry is one project entry.
type ProjectEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Role         string   `json:"role"`
	TeamSize     int      `json:"team_size"`
	Duration     string   `json:"duration"`
	Technologies []string `json:"technologies"`
	Challenges   string   `json:"challenges"`
	Solutions    string   `json:"solutions"`
	Results      string   `json:"results"`
}

// Education is one education entry.
type Education struct {
	Degree          string   `json:"degree"`
	School          string   `json:"school"`
	GraduationYear  int      `json:"graduation_year"`
	Status          string   `json:"status,omitempty"`
	RelevantCourses []string `json:"relevant_courses,omitempty"`
}

// Language is one spoken-language entry.
type Language struct {
	Language string `json:"language"`
	Level    string `json:"level"`
}

// Personality captures working style and values.
type Personality struct {
	WorkStyle string   `json:"work_style"`
	Values    string   `json:"values"`
	Interests []string `json:"interests"`
}

// Candidate is a stored profile record with its identity and timestamps.
// Immutable except via full replacement of the embedded Profile.
type Candidate struct {
	ID        string    `json:"id"`
	Profile   Profile   `json:"profile_data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is a compact listing entry for a stored candidate.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
