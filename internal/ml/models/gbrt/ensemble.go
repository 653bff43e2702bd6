package gbrt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

// transformName is the output transform recorded in serialized ensembles. Regression outputs are
// raw sums, so it maps to boo's identity transform.
const transformName = "identity"

const roundHeader = "ROUND "

func init() {
	boo.ProbTransformMap[transformName] = utils.DoNothingDense
}

// ensemble is boo's serialized form split into the metadata line and the tree lines of each
// boosting round.
type ensemble struct {
	meta   string
	rounds []string
}

func encode(boost *boo.MultiClass) (ensemble, error) {
	var buf bytes.Buffer
	if err := boo.JSONMultiClass(boost, transformName, &buf); err != nil {
		return ensemble{}, fmt.Errorf("serialize booster: %w", err)
	}
	return parseEnsemble(buf.String())
}

func parseEnsemble(text string) (ensemble, error) {
	meta, body, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimSpace(meta) == "" {
		return ensemble{}, errors.New("invalid model text: missing metadata")
	}
	var rounds [][]string
	for _, line := range strings.SplitAfter(body, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, roundHeader) {
			rounds = append(rounds, nil)
			continue
		}
		if len(rounds) == 0 {
			return ensemble{}, errors.New("invalid model text: trees before the first round")
		}
		rounds[len(rounds)-1] = append(rounds[len(rounds)-1], line)
	}
	if len(rounds) == 0 {
		return ensemble{}, errors.New("invalid model text: no rounds")
	}
	e := ensemble{meta: meta, rounds: make([]string, len(rounds))}
	for i, lines := range rounds {
		e.rounds[i] = strings.Join(lines, "")
	}
	return e, nil
}

func (e ensemble) String() string {
	var b strings.Builder
	b.WriteString(e.meta)
	b.WriteByte('\n')
	for i, r := range e.rounds {
		fmt.Fprintf(&b, "%s%d\n", roundHeader, i)
		b.WriteString(r)
	}
	return b.String()
}

// decode rebuilds the booster. boo keeps a round only once it reads the next header, so a closing
// header is appended or the last round would be lost.
func (e ensemble) decode() (*boo.MultiClass, error) {
	if len(e.rounds) == 0 {
		return nil, errors.New("invalid model text: no rounds")
	}
	text := e.String() + fmt.Sprintf("%s%d\n", roundHeader, len(e.rounds))
	boost, err := boo.UnJSONMultiClass(bufio.NewReader(strings.NewReader(text)))
	if err != nil {
		return nil, fmt.Errorf("deserialize booster: %w", err)
	}
	return boost, nil
}

// stage returns round i alone with a zero base score, so its predictions are that round's
// contribution to the ensemble.
func (e ensemble) stage(i int, meta boo.JSONMetaData) (*boo.MultiClass, error) {
	meta.BaseScore = 0
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return ensemble{meta: string(raw), rounds: e.rounds[i : i+1]}.decode()
}
