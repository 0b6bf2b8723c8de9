package output

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marmos91/dittowatch/pkg/mirror"
)

// MirrorTable lists mirrors one per row.
type MirrorTable struct {
	Mirrors []mirror.Status
	now     func() time.Time
}

func NewMirrorTable(statuses []mirror.Status) *MirrorTable {
	return &MirrorTable{Mirrors: statuses, now: time.Now}
}

func (t *MirrorTable) Headers() []string {
	return []string{"Name", "Store", "State", "Since", "Samples", "Violations", "P99 (ms)", "SLO", "Last Probe"}
}

func (t *MirrorTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Mirrors))
	for _, s := range t.Mirrors {
		rows = append(rows, []string{
			s.Name,
			s.StoreType,
			s.State.String(),
			since(s.Since, t.now()),
			strconv.Itoa(s.Samples),
			strconv.Itoa(s.Summary.Violations),
			ms(s.Summary.P99Ms),
			s.LatencySLO.String(),
			lastProbe(s.LastProbe),
		})
	}
	return rows
}

// MarshalJSON keeps JSON and YAML output a plain list.
func (t *MirrorTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Mirrors)
}

func (t *MirrorTable) MarshalYAML() (any, error) {
	return t.Mirrors, nil
}

// MirrorDetail returns the key/value view of one mirror.
func MirrorDetail(s mirror.Status) [][2]string {
	pairs := [][2]string{
		{"Name", s.Name},
		{"Store", s.StoreType},
		{"State", s.State.String()},
		{"Since", since(s.Since, time.Now())},
		{"Running", strconv.FormatBool(s.Running)},
		{"Latency SLO", s.LatencySLO.String()},
		{"Samples", strconv.Itoa(s.Samples)},
		{"Violations", strconv.Itoa(s.Summary.Violations)},
		{"Mean (ms)", ms(s.Summary.MeanMs)},
		{"P50 (ms)", ms(s.Summary.P50Ms)},
		{"P99 (ms)", ms(s.Summary.P99Ms)},
		{"Max (ms)", ms(s.Summary.MaxMs)},
		{"Probes", fmt.Sprintf("%s ok, %s failed", humanize.Comma(int64(s.ProbesOK)), humanize.Comma(int64(s.ProbesFailed)))},
		{"Last Probe", lastProbe(s.LastProbe)},
	}
	if s.LastProbe != nil && s.LastProbe.Error != "" {
		pairs = append(pairs, [2]string{"Last Error", s.LastProbe.Error})
	}
	return pairs
}

func since(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func ms(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func lastProbe(p *mirror.ProbeStatus) string {
	switch {
	case p == nil:
		return "-"
	case p.Error != "":
		return "failed"
	default:
		return ms(p.LatencyMs) + "ms"
	}
}
