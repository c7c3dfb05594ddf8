package lagoon

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Status is the lifecycle state of a prediction or training. Transitions
// are monotonic along starting -> processing -> {succeeded, failed,
// canceled}; terminal states never transition again.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// statusRank orders states for the monotonicity guard in Reload. Terminal
// states share a rank: the server decides which one, the client only
// refuses to move backward.
var statusRank = map[Status]int{
	StatusStarting:   0,
	StatusProcessing: 1,
	StatusSucceeded:  2,
	StatusFailed:     2,
	StatusCanceled:   2,
}

// PredictionInput maps parameter names to values. Values may be scalars,
// file-ish values (*os.File, io.Reader, []byte, FileInput) or nested
// maps/slices of the same. It is consumed once at submission time.
type PredictionInput map[string]interface{}

// Prediction is one invocation of a model version. The struct the client
// hands out is the authoritative local copy; it is only mutated by Reload,
// and a single handle is not safe for concurrent mutation.
type Prediction struct {
	ID          string                 `json:"id"`
	Model       string                 `json:"model,omitempty"`
	Version     string                 `json:"version"`
	Status      Status                 `json:"status"`
	Input       PredictionInput        `json:"input,omitempty"`
	Output      interface{}            `json:"output,omitempty"`
	Logs        string                 `json:"logs,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metrics     map[string]interface{} `json:"metrics,omitempty"`
	CreatedAt   string                 `json:"created_at,omitempty"`
	StartedAt   string                 `json:"started_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	URLs        map[string]string      `json:"urls,omitempty"`
}

// AsMap serializes the prediction into a generic mapping, for callers that
// want to treat it as loose JSON instead of a typed record.
func (p *Prediction) AsMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Progress is parsed out of tqdm-style progress lines in a prediction's logs.
type Progress struct {
	Percentage float64
	Current    int
	Total      int
}

var progressPattern = regexp.MustCompile(`^\s*(\d+)%\s*\|.+?\|\s*(\d+)/(\d+)`)

// Progress returns the most recent progress line found in the logs, or nil
// if the model has not emitted one.
func (p *Prediction) Progress() *Progress {
	if p.Logs == "" {
		return nil
	}
	lines := strings.Split(p.Logs, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := progressPattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		percentage, _ := strconv.Atoi(m[1])
		current, _ := strconv.Atoi(m[2])
		total, _ := strconv.Atoi(m[3])
		return &Progress{Percentage: float64(percentage) / 100.0, Current: current, Total: total}
	}
	return nil
}

// Model identifies a named model owned by a user or organization.
type Model struct {
	Owner          string                 `json:"owner"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Visibility     string                 `json:"visibility,omitempty"`
	RunCount       int                    `json:"run_count,omitempty"`
	CoverImageURL  string                 `json:"cover_image_url,omitempty"`
	LatestVersion  *Version               `json:"latest_version,omitempty"`
	DefaultExample map[string]interface{} `json:"default_example,omitempty"`
}

// Version is an immutable, addressable snapshot of a model's code and weights.
type Version struct {
	ID            string                 `json:"id"`
	CreatedAt     string                 `json:"created_at,omitempty"`
	CogVersion    string                 `json:"cog_version,omitempty"`
	OpenAPISchema map[string]interface{} `json:"openapi_schema,omitempty"`
}

// Collection is a curated, named group of models.
type Collection struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	Models      []Model `json:"models,omitempty"`
}

// Hardware is a static descriptive record for an available SKU.
type Hardware struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// Training is a fine-tune job. It shares the prediction lifecycle.
type Training struct {
	ID          string                 `json:"id"`
	Model       string                 `json:"model,omitempty"`
	Version     string                 `json:"version"`
	Destination string                 `json:"destination,omitempty"`
	Status      Status                 `json:"status"`
	Input       PredictionInput        `json:"input,omitempty"`
	Output      interface{}            `json:"output,omitempty"`
	Logs        string                 `json:"logs,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   string                 `json:"created_at,omitempty"`
	StartedAt   string                 `json:"started_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	URLs        map[string]string      `json:"urls,omitempty"`
	Metrics     map[string]interface{} `json:"metrics,omitempty"`
}
