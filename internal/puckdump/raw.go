package puckdump

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// FetchRaw hits an arbitrary path under league/<key>/ and returns the body,
// optionally re-indented. Nothing is written to the export tree; this is
// the escape hatch for endpoints without a typed module.
func (d *Dumper) FetchRaw(ctx context.Context, leagueKey, path string, pretty bool) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("endpoint path is required")
	}
	data, err := d.client.LeagueRaw(ctx, leagueKey, path)
	if err != nil {
		return nil, err
	}
	if !pretty {
		return data, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		// Not JSON after all; hand back the body untouched.
		return data, nil
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
