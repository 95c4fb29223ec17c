// Package generator builds sample defect datasets.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/qc7/internal/model"
)

// DefaultSeed reproduces the stock sample dataset.
const DefaultSeed = 42

// Labels is the vocabulary drawn from when generating records.
type Labels struct {
	Products    []string
	DefectItems []string
	Causes      []string
	Processes   []string
	Remark      func(cause, item string) string
}

// English is the default vocabulary.
var English = Labels{
	Products:    []string{"Product A", "Product B", "Product C"},
	DefectItems: []string{"Dimension", "Surface roughness", "Chip", "Scratch", "Deformation"},
	Causes:      []string{"machining", "material", "tool", "operator", "environment"},
	Processes:   []string{"lathe", "milling", "grinding", "assembly", "inspection"},
	Remark: func(cause, item string) string {
		return fmt.Sprintf("%s caused by %s", item, cause)
	},
}

// Japanese mirrors the shop-floor labels used by Japanese CSV exports.
var Japanese = Labels{
	Products:    []string{"製品A", "製品B", "製品C"},
	DefectItems: []string{"寸法不良", "表面粗さ", "欠け", "傷", "変形"},
	Causes:      []string{"加工", "材料", "工具", "作業者", "環境"},
	Processes:   []string{"旋盤", "フライス", "研削", "組立", "検査"},
	Remark: func(cause, item string) string {
		return cause + "による" + item
	},
}

// Options controls the generated period.
type Options struct {
	Start  time.Time
	Days   int
	Labels Labels
}

// DefaultOptions covers January 2024 with English labels.
func DefaultOptions() Options {
	return Options{
		Start:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Days:   31,
		Labels: English,
	}
}

// Generator produces randomized defect records.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate emits one to three records per product per day. Defect counts
// fall in [1, 9] and inspection counts in [80, 119].
func (g *Generator) Generate(opts Options) []model.DefectRecord {
	labels := opts.Labels
	if len(labels.Products) == 0 {
		labels = English
	}
	if opts.Days <= 0 {
		opts.Days = DefaultOptions().Days
	}
	start := opts.Start
	if start.IsZero() {
		start = DefaultOptions().Start
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	var out []model.DefectRecord
	for d := 0; d < opts.Days; d++ {
		date := start.AddDate(0, 0, d)
		for _, product := range labels.Products {
			rows := 1 + g.rnd.Intn(3)
			for i := 0; i < rows; i++ {
				item := pick(g.rnd, labels.DefectItems)
				cause := pick(g.rnd, labels.Causes)
				rec := model.DefectRecord{
					Date:            date,
					Product:         product,
					DefectItem:      item,
					DefectCount:     1 + g.rnd.Intn(9),
					InspectionCount: 80 + g.rnd.Intn(40),
					CauseCategory:   cause,
					Process:         pick(g.rnd, labels.Processes),
				}
				if labels.Remark != nil {
					rec.Remarks = labels.Remark(cause, item)
				}
				out = append(out, rec)
			}
		}
	}
	return out
}

func pick(rnd *rand.Rand, values []string) string {
	return values[rnd.Intn(len(values))]
}
