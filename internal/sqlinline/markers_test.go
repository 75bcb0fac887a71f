package sqlinline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// Every query constant must open with a unique `--sql <uuid>` line so the
// runner can log it by marker.
func TestQueriesCarryUniqueMarkers(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	seen := map[string]string{}
	count := 0
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		ast.Inspect(file, func(n ast.Node) bool {
			vs, ok := n.(*ast.ValueSpec)
			if !ok {
				return true
			}
			for i, value := range vs.Values {
				bl, ok := value.(*ast.BasicLit)
				if !ok || bl.Kind != token.STRING {
					continue
				}
				raw := unquote(bl.Value)
				if !sqlKeywordPattern.MatchString(raw) {
					continue
				}
				count++
				name := vs.Names[i].Name
				marker := firstLine(raw)
				if !uuidMarkerPattern.MatchString(marker) {
					t.Errorf("%s: %s has missing or invalid marker %q", fset.Position(bl.Pos()), name, marker)
					continue
				}
				if prev, dup := seen[marker]; dup {
					t.Errorf("%s reuses marker of %s", name, prev)
				}
				seen[marker] = name
			}
			return true
		})
	}
	if count == 0 {
		t.Fatalf("no queries found")
	}
}

func TestLedgerQueriesWriteAuditEntry(t *testing.T) {
	for name, q := range map[string]string{"debit": QDebitCredits, "credit": QCreditCredits} {
		if !strings.Contains(q, "insert into credit_ledger") {
			t.Errorf("%s query does not write credit_ledger", name)
		}
	}
	if !strings.Contains(QDebitCredits, "credit_balance >= $2::int") {
		t.Errorf("debit query is missing the non-negative guard")
	}
	if !strings.Contains(QFinalizeGenerationJob, "status in ('PENDING', 'PROCESSING')") {
		t.Errorf("finalize query is missing the open-status guard")
	}
	if !strings.Contains(QRecordGenerationUnitResult, "status in ('PENDING', 'PROCESSING')") {
		t.Errorf("unit result query counts toward closed jobs")
	}
	if !strings.Contains(QFinalizeGenerationJob, "updated_at < $4::timestamptz") {
		t.Errorf("finalize query is missing the idle guard")
	}
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '`' {
		return v[1 : len(v)-1]
	}
	s, err := strconv.Unquote(v)
	if err != nil {
		return v
	}
	return s
}
