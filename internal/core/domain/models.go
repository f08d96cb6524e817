package domain

import "time"

type CrackingJob struct {
	ID              string            `json:"id"`
	TargetHash      string            `json:"targetHash"`
	HashType        HashType          `json:"hashType"`
	Status          JobStatus         `json:"status"`
	StartTime       time.Time         `json:"startTime"`
	EndTime         time.Time         `json:"endTime,omitempty"`
	FoundPassword   string            `json:"foundPassword,omitempty"`
	Progress        float64           `json:"progress"`
	Algorithm       CrackingAlgorithm `json:"algorithm"`
	Settings        CrackingSettings  `json:"settings"`
	ResourceMetrics ResourceMetrics   `json:"resourceMetrics"`
	AttemptCount    int64             `json:"attemptCount"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
}

type CrackingSettings struct {
	Mode         SearchMode       `json:"mode"`
	Threads      int              `json:"threads"`
	Policy       CompletionPolicy `json:"policy"`
	CharacterSet string           `json:"characterSet"`
	Length       int              `json:"length"`
}

type ResourceMetrics struct {
	CPUUsage            float64   `json:"cpuUsage"`
	SystemMemoryPercent float64   `json:"systemMemoryPercent"`
	MemoryUsageMB       int64     `json:"memoryUsageMb"`
	AttemptsPerSec      int64     `json:"attemptsPerSec"`
	TotalAttempts       int64     `json:"totalAttempts"`
	ActiveThreads       int       `json:"activeThreads"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// SearchOutcome is the result of scanning a space or a worker's stripe.
// Exhausted is the zero value.
type SearchOutcome struct {
	Found    bool
	Password string
}

func Found(password string) SearchOutcome {
	return SearchOutcome{Found: true, Password: password}
}

func Exhausted() SearchOutcome {
	return SearchOutcome{}
}

func (o SearchOutcome) String() string {
	if o.Found {
		return "Found(" + o.Password + ")"
	}
	return "Exhausted"
}

type CrackResult struct {
	JobID        string            `json:"jobId"`
	Hash         string            `json:"hash"`
	HashType     HashType          `json:"hashType"`
	Password     string            `json:"foundPassword,omitempty"`
	Found        bool              `json:"found"`
	TimeTaken    time.Duration     `json:"-"`
	Seconds      float64           `json:"timeTaken"`
	AttemptsUsed int64             `json:"attemptsUsed"`
	Algorithm    CrackingAlgorithm `json:"algorithm"`
	Mode         SearchMode        `json:"mode"`
	Workers      int               `json:"workers"`
}

type JobProgress struct {
	JobID         string  `json:"jobId"`
	Status        string  `json:"status"`
	Progress      float64 `json:"progress"`
	Speed         int64   `json:"speed"`
	ActiveThreads int     `json:"activeThreads"`
}
