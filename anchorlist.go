/*
Anchor list

History of anchors in order they were set. Used for diagnostics: how much monotonic clock
drifts against network time between measurements
*/

package truetime

import (
	"fmt"
	"strings"
)

type AnchorList []Anchor

//Len number of anchors in list
func (p AnchorList) Len() int {
	return len(p)
}

//Latest returns last n anchors, all if less available
func (p AnchorList) Latest(n int) AnchorList {
	if n <= 0 {
		return AnchorList{}
	}
	if len(p) < n {
		return p
	}
	return p[len(p)-n:]
}

/*
Drift lists for consecutive anchor pairs how far previous anchor projection was from new
measurement. Positive means local monotonic clock runs slower than network time.
Pairs where elapsed goes backwards are from different boots and skipped
*/
func (p AnchorList) Drift() []MsEpoch {
	result := []MsEpoch{}
	for i := 1; i < len(p); i++ {
		if p[i].Elapsed < p[i-1].Elapsed {
			continue
		}
		result = append(result, p[i].Epoch-p[i-1].Project(p[i].Elapsed))
	}
	return result
}

//String representation with newline at end
func (p AnchorList) String() string {
	var sb strings.Builder
	for _, a := range p {
		sb.WriteString(fmt.Sprintf("%v\t%v\n", a.Epoch, a.Elapsed))
	}
	return sb.String()
}

//ParseAnchorList parses from raw byte array. Check length validity
func ParseAnchorList(raw []byte) (AnchorList, error) {
	if len(raw)%RECORDSIZE_ANCHOR != 0 {
		return AnchorList{}, fmt.Errorf("must be multiple of %v (len=%v)", RECORDSIZE_ANCHOR, len(raw))
	}

	result := make(AnchorList, len(raw)/RECORDSIZE_ANCHOR)
	for i := range result {
		var errParse error
		arr := raw[i*RECORDSIZE_ANCHOR : (i+1)*RECORDSIZE_ANCHOR]
		result[i], errParse = ParseAnchor(arr)
		if errParse != nil {
			return result, errParse
		}
	}
	return result, nil
}
