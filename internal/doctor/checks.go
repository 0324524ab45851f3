package doctor

import (
	"fmt"
	"math"

	"github.com/steveyegge/sqlhealth/internal/sqlserver"
)

// Thresholds used by the built-in checks.
const (
	// XTPWarnGB is the in-memory OLTP allocation above which usage is
	// reported as elevated.
	XTPWarnGB = 1.0
	// LongTransactionMinutes is the age a transaction must exceed to be
	// reported at all.
	LongTransactionMinutes = 5
	// EscalateMinutes is the age above which a long transaction gets
	// remediation advice.
	EscalateMinutes = 30
)

// DefaultChecks returns the built-in checks in execution order.
func DefaultChecks() []Check {
	return []Check{
		&MemoryCheck{},
		&LongTransactionCheck{},
		&LogReuseWaitCheck{},
	}
}

// CheckNames returns the names of checks, in order.
func CheckNames(checks []Check) []string {
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name()
	}
	return names
}

// --- XTP memory ---

const memoryQuery = `SELECT
    type,
    SUM(pages_kb) AS pages_kb
FROM sys.dm_os_memory_clerks
WHERE type = 'MEMORYCLERK_XTP'
GROUP BY type`

// MemoryCheck reports memory allocated to the in-memory OLTP engine.
type MemoryCheck struct{}

// Name returns the check identifier.
func (c *MemoryCheck) Name() string { return "xtp-memory" }

// Title returns the section header.
func (c *MemoryCheck) Title() string { return "XTP memory usage" }

// Query returns the memory clerk aggregation.
func (c *MemoryCheck) Query() string { return memoryQuery }

// Interpret converts the clerk's KB total to GB, rounds it to the two
// decimals that are reported, and compares that with XTPWarnGB. The boundary
// itself is not elevated.
func (c *MemoryCheck) Interpret(rows []sqlserver.Row) ([]Finding, error) {
	if len(rows) == 0 {
		return []Finding{{
			Check:    c.Name(),
			Severity: Informational,
			Message:  "XTP memory: feature unused or no data",
		}}, nil
	}
	var out []Finding
	for _, row := range rows {
		kb, err := row.Float64("pages_kb")
		if err != nil {
			return nil, err
		}
		gb := math.Round(KBToGB(kb)*100) / 100
		f := Finding{
			Check:    c.Name(),
			Severity: Informational,
			Message:  fmt.Sprintf("XTP memory usage: %.2f GB", gb),
			Payload:  map[string]any{"pages_kb": kb, "gb": gb},
		}
		if gb > XTPWarnGB {
			f.Severity = Warning
			f.Message = fmt.Sprintf("elevated XTP memory usage: %.2f GB", gb)
			f.Details = []string{"in-memory OLTP tables and table variables are holding more than 1 GB"}
		}
		out = append(out, f)
	}
	return out, nil
}

// KBToGB converts kilobytes to gigabytes (1 GB = 1024 * 1024 KB).
func KBToGB(kb float64) float64 {
	return kb / 1024 / 1024
}

// --- Long-running transactions ---

var longTransactionQuery = fmt.Sprintf(`SELECT
    s.session_id,
    s.program_name,
    s.host_name,
    s.login_name,
    t.transaction_begin_time,
    DATEDIFF(MINUTE, t.transaction_begin_time, GETDATE()) AS duration_minutes,
    t.transaction_type,
    t.transaction_state
FROM sys.dm_tran_active_transactions t
JOIN sys.dm_tran_session_transactions st ON t.transaction_id = st.transaction_id
JOIN sys.dm_exec_sessions s ON st.session_id = s.session_id
WHERE DATEDIFF(MINUTE, t.transaction_begin_time, GETDATE()) > %d
ORDER BY duration_minutes DESC`, LongTransactionMinutes)

var transactionTypes = map[int64]string{
	1: "Read/Write",
	2: "Read-Only",
	3: "System",
	4: "Distributed",
}

var transactionStates = map[int64]string{
	0: "Uninitialized",
	1: "Initialized",
	2: "Active",
	3: "Ended",
	4: "Commit initiated",
	5: "Prepared",
	6: "Committed",
	7: "Rolling back",
	8: "Rolled back",
}

// TransactionType decodes sys.dm_tran_active_transactions.transaction_type.
func TransactionType(code int64) string {
	if l, ok := transactionTypes[code]; ok {
		return l
	}
	return "Unknown"
}

// TransactionState decodes sys.dm_tran_active_transactions.transaction_state.
func TransactionState(code int64) string {
	if l, ok := transactionStates[code]; ok {
		return l
	}
	return "Unknown"
}

// LongTransactionCheck reports transactions open longer than
// LongTransactionMinutes, longest first.
type LongTransactionCheck struct{}

// Name returns the check identifier.
func (c *LongTransactionCheck) Name() string { return "long-transactions" }

// Title returns the section header.
func (c *LongTransactionCheck) Title() string { return "Long-running transactions" }

// Query returns the active transaction join.
func (c *LongTransactionCheck) Query() string { return longTransactionQuery }

// longTransaction is one decoded row.
type longTransaction struct {
	sessionID int64
	minutes   int64
	program   string
	host      string
	login     string
	txnType   string
	txnState  string
}

func scanLongTransaction(row sqlserver.Row) (longTransaction, error) {
	var lt longTransaction
	var err error
	if lt.sessionID, err = row.Int64("session_id"); err != nil {
		return lt, err
	}
	if lt.minutes, err = row.Int64("duration_minutes"); err != nil {
		return lt, err
	}
	if lt.program, err = row.Text("program_name"); err != nil {
		return lt, err
	}
	if lt.host, err = row.Text("host_name"); err != nil {
		return lt, err
	}
	if lt.login, err = row.Text("login_name"); err != nil {
		return lt, err
	}
	typ, err := row.Int64("transaction_type")
	if err != nil {
		return lt, err
	}
	state, err := row.Int64("transaction_state")
	if err != nil {
		return lt, err
	}
	lt.txnType = TransactionType(typ)
	lt.txnState = TransactionState(state)
	return lt, nil
}

// Interpret emits one actionable finding per row, in row order.
func (c *LongTransactionCheck) Interpret(rows []sqlserver.Row) ([]Finding, error) {
	if len(rows) == 0 {
		return []Finding{{
			Check:    c.Name(),
			Severity: Informational,
			Message:  fmt.Sprintf("no long-running transactions (>%d minutes)", LongTransactionMinutes),
		}}, nil
	}
	out := make([]Finding, 0, len(rows))
	for _, row := range rows {
		lt, err := scanLongTransaction(row)
		if err != nil {
			return nil, err
		}
		escalated := lt.minutes > EscalateMinutes
		f := Finding{
			Check:    c.Name(),
			Severity: Actionable,
			Message:  fmt.Sprintf("long-running transaction: session %d, %d minutes", lt.sessionID, lt.minutes),
			Details: []string{
				fmt.Sprintf("session id: %d", lt.sessionID),
				fmt.Sprintf("duration: %d minutes", lt.minutes),
				"program: " + lt.program,
				"host: " + lt.host,
				"login: " + lt.login,
				"transaction type: " + lt.txnType,
				"transaction state: " + lt.txnState,
			},
			Payload: map[string]any{
				"session_id":        lt.sessionID,
				"duration_minutes":  lt.minutes,
				"program_name":      lt.program,
				"host_name":         lt.host,
				"login_name":        lt.login,
				"transaction_type":  lt.txnType,
				"transaction_state": lt.txnState,
				"escalated":         escalated,
			},
		}
		if escalated {
			f.Details = append(f.Details,
				fmt.Sprintf("advice: this transaction has been running for %d minutes; check:", lt.minutes),
				fmt.Sprintf("  1. whether program '%s' is working normally", lt.program),
				"  2. whether the session needs to be ended manually",
				"  note: forcibly ending the session may cause data loss",
			)
		}
		out = append(out, f)
	}
	return out, nil
}

// --- Log reuse wait ---

const logReuseWaitQuery = `SELECT
    name AS database_name,
    log_reuse_wait_desc
FROM sys.databases
WHERE log_reuse_wait_desc <> 'NOTHING'
    AND name NOT IN ('master', 'model', 'msdb', 'tempdb')`

type logWaitRule struct {
	severity Severity
	message  string
}

var logWaitRules = map[string]logWaitRule{
	"ACTIVE_TRANSACTION": {Actionable, "long transaction blocking log truncation; investigate and resolve the transaction."},
	"LOG_BACKUP":         {Actionable, "transaction log backup required; run a log backup."},
	"CHECKPOINT":         {Warning, "waiting on checkpoint; usually self-resolves, may force a checkpoint."},
}

// LogWaitAdvice returns the severity and advice for a log_reuse_wait_desc
// value. Unrecognized reasons are informational and point at the docs.
func LogWaitAdvice(reason string) (Severity, string) {
	if r, ok := logWaitRules[reason]; ok {
		return r.severity, r.message
	}
	return Informational, fmt.Sprintf("consult documentation for reason '%s'.", reason)
}

// LogReuseWaitCheck reports user databases whose log cannot be reused.
type LogReuseWaitCheck struct{}

// Name returns the check identifier.
func (c *LogReuseWaitCheck) Name() string { return "log-reuse-wait" }

// Title returns the section header.
func (c *LogReuseWaitCheck) Title() string { return "Transaction log reuse" }

// Query returns the sys.databases filter.
func (c *LogReuseWaitCheck) Query() string { return logReuseWaitQuery }

// Interpret emits one finding per waiting database.
func (c *LogReuseWaitCheck) Interpret(rows []sqlserver.Row) ([]Finding, error) {
	if len(rows) == 0 {
		return []Finding{{
			Check:    c.Name(),
			Severity: Informational,
			Message:  "all user database logs reusable",
		}}, nil
	}
	out := make([]Finding, 0, len(rows))
	for _, row := range rows {
		db, err := row.Text("database_name")
		if err != nil {
			return nil, err
		}
		reason, err := row.Text("log_reuse_wait_desc")
		if err != nil {
			return nil, err
		}
		sev, advice := LogWaitAdvice(reason)
		out = append(out, Finding{
			Check:    c.Name(),
			Severity: sev,
			Message:  fmt.Sprintf("%s: %s", db, advice),
			Details:  []string{"log reuse wait: " + reason},
			Payload:  map[string]any{"database": db, "reason": reason},
		})
	}
	return out, nil
}
