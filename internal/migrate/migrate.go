// README: Applies the plain SQL schema files under migrations/.
package migrate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ApplyFile runs every statement of the SQL file at path in order. The schema
// files are idempotent (IF NOT EXISTS), so re-applying is safe.
func ApplyFile(ctx context.Context, db Execer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for i, stmt := range Statements(string(content)) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Statements drops "--" comment lines and splits on ";".
// Statements must not contain semicolons inside literals.
func Statements(sql string) []string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sql))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	parts := strings.Split(b.String(), ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

// Tables lists the tables a schema file creates.
func Tables(sql string) []string {
	matches := createTable.FindAllStringSubmatch(sql, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
