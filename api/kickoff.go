package api

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var kickoffParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseKickoff accepts either RFC 3339 or a natural-language phrase like
// "tomorrow at 8pm".
func parseKickoff(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	result, err := kickoffParser.Parse(raw, now)
	if err != nil || result == nil {
		return time.Time{}, fmt.Errorf("could not recognize time %q", raw)
	}
	return result.Time, nil
}
