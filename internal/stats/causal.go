package stats

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/qc7/internal/model"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// Bucket is one of the 4M cause categories.
type Bucket uint8

const (
	Man Bucket = iota
	Machine
	Material
	Method
)

var bucketNames = [...]string{
	Man:      "Man",
	Machine:  "Machine",
	Material: "Material",
	Method:   "Method",
}

func (b Bucket) String() string {
	if int(b) < len(bucketNames) {
		return bucketNames[b]
	}
	return "Unknown"
}

// Buckets lists the 4M buckets in display order.
func Buckets() []Bucket {
	return []Bucket{Man, Machine, Material, Method}
}

// BucketSet is the non-exclusive membership of a cause.
type BucketSet uint8

func (s BucketSet) With(b Bucket) BucketSet {
	return s | 1<<b
}

func (s BucketSet) Has(b Bucket) bool {
	return s&(1<<b) != 0
}

func (s BucketSet) Empty() bool {
	return s == 0
}

// Members returns the buckets in the set in display order.
func (s BucketSet) Members() []Bucket {
	var out []Bucket
	for _, b := range Buckets() {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s BucketSet) String() string {
	members := s.Members()
	if len(members) == 0 {
		return "-"
	}
	names := make([]string, len(members))
	for i, b := range members {
		names[i] = b.String()
	}
	return strings.Join(names, ",")
}

// Rules holds the substring keywords per bucket.
type Rules struct {
	Man      []string `yaml:"man" json:"man"`
	Machine  []string `yaml:"machine" json:"machine"`
	Material []string `yaml:"material" json:"material"`
	Method   []string `yaml:"method" json:"method"`
}

var defaultRules = sync.OnceValues(func() (Rules, error) {
	return ParseRules(keywordsYAML)
})

// DefaultRules returns a copy of the embedded keyword rules.
func DefaultRules() Rules {
	rules, err := defaultRules()
	if err != nil {
		panic(fmt.Sprintf("load keywords.yaml: %v", err))
	}
	return rules.clone()
}

// ParseRules decodes keyword rules from YAML.
func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse keyword rules: %w", err)
	}
	return rules, nil
}

// IsZero reports whether no bucket has any keyword.
func (r Rules) IsZero() bool {
	return len(r.Man) == 0 && len(r.Machine) == 0 && len(r.Material) == 0 && len(r.Method) == 0
}

// Override replaces each bucket whose override list is non-empty.
func (r Rules) Override(o Rules) Rules {
	out := r.clone()
	if len(o.Man) > 0 {
		out.Man = append([]string(nil), o.Man...)
	}
	if len(o.Machine) > 0 {
		out.Machine = append([]string(nil), o.Machine...)
	}
	if len(o.Material) > 0 {
		out.Material = append([]string(nil), o.Material...)
	}
	if len(o.Method) > 0 {
		out.Method = append([]string(nil), o.Method...)
	}
	return out
}

// Keywords returns the keyword list of a bucket.
func (r Rules) Keywords(b Bucket) []string {
	switch b {
	case Man:
		return r.Man
	case Machine:
		return r.Machine
	case Material:
		return r.Material
	case Method:
		return r.Method
	}
	return nil
}

// Match returns every bucket with a keyword contained in cause.
func (r Rules) Match(cause string) BucketSet {
	var set BucketSet
	for _, b := range Buckets() {
		for _, kw := range r.Keywords(b) {
			if kw != "" && strings.Contains(cause, kw) {
				set = set.With(b)
				break
			}
		}
	}
	return set
}

func (r Rules) clone() Rules {
	return Rules{
		Man:      append([]string(nil), r.Man...),
		Machine:  append([]string(nil), r.Machine...),
		Material: append([]string(nil), r.Material...),
		Method:   append([]string(nil), r.Method...),
	}
}

// CauseLoad is a cause with its total defects and bucket membership.
type CauseLoad struct {
	Cause       string    `json:"cause" yaml:"cause"`
	DefectCount int       `json:"defect_count" yaml:"defect_count"`
	Buckets     BucketSet `json:"buckets" yaml:"buckets"`
}

// BucketEntry lists the causes of one bucket in cause rank order.
type BucketEntry struct {
	Bucket Bucket      `json:"bucket" yaml:"bucket"`
	Causes []CauseLoad `json:"causes" yaml:"causes"`
	Total  int         `json:"total" yaml:"total"`
}

// CausalResult is the 4M view of the cause aggregation.
type CausalResult struct {
	Causes       []CauseLoad   `json:"causes" yaml:"causes"`
	Buckets      []BucketEntry `json:"buckets" yaml:"buckets"`
	Unclassified []CauseLoad   `json:"unclassified" yaml:"unclassified"`
}

// Bucket returns the entry for b.
func (r CausalResult) Bucket(b Bucket) BucketEntry {
	for _, e := range r.Buckets {
		if e.Bucket == b {
			return e
		}
	}
	return BucketEntry{Bucket: b}
}

// Classify tests every distinct cause against every bucket.
func Classify(ds model.Dataset, rules Rules) (CausalResult, error) {
	agg, err := Aggregate(ds, model.ByCause, model.MeasureDefectCount)
	if err != nil {
		return CausalResult{}, err
	}
	result := CausalResult{
		Causes:  make([]CauseLoad, 0, len(agg.Groups)),
		Buckets: make([]BucketEntry, 0, len(Buckets())),
	}
	for _, b := range Buckets() {
		result.Buckets = append(result.Buckets, BucketEntry{Bucket: b})
	}
	for _, g := range agg.Groups {
		load := CauseLoad{Cause: g.Key, DefectCount: g.DefectCount, Buckets: rules.Match(g.Key)}
		result.Causes = append(result.Causes, load)
		if load.Buckets.Empty() {
			result.Unclassified = append(result.Unclassified, load)
			continue
		}
		for i := range result.Buckets {
			if load.Buckets.Has(result.Buckets[i].Bucket) {
				result.Buckets[i].Causes = append(result.Buckets[i].Causes, load)
				result.Buckets[i].Total += load.DefectCount
			}
		}
	}
	return result, nil
}
