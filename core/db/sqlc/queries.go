// Package sqlc holds the hand-written, sqlc-idiom typed query layer: plain
// SQL strings plus small Go structs scanned from pgx.Rows, no ORM. It is
// written by hand in sqlc's generated style; there are no .sql query
// sources for it and the module has no codegen step.
package sqlc

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so Queries works
// identically inside db.WithTx and against the bare pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the typed query layer. Constructed fresh per pool or per
// transaction by db.DB.Queries / db.DB.WithTx.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// --- Sessions ----------------------------------------------------------

type Session struct {
	ID        int64
	Soul      string
	CreatedAt time.Time
}

func (q *Queries) CreateSession(ctx context.Context, id int64, soul string) error {
	_, err := q.db.Exec(ctx, `INSERT INTO sessions (id, soul) VALUES ($1, $2)`, id, soul)
	return err
}

func (q *Queries) GetSession(ctx context.Context, id int64) (Session, error) {
	var s Session
	err := q.db.QueryRow(ctx, `SELECT id, soul, created_at FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.Soul, &s.CreatedAt)
	return s, err
}

// --- Tasks ---------------------------------------------------------------

type Task struct {
	ID          int64
	SessionID   *int64
	Description string
	Category    string
	Context     []byte
	Result      []byte
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type CreateTaskParams struct {
	ID          int64
	SessionID   *int64
	Description string
	Category    string
	Context     []byte
}

func (q *Queries) CreateTask(ctx context.Context, p CreateTaskParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO tasks (id, session_id, description, category, context) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.SessionID, p.Description, p.Category, p.Context)
	return err
}

func (q *Queries) GetTask(ctx context.Context, id int64) (Task, error) {
	var t Task
	err := q.db.QueryRow(ctx,
		`SELECT id, session_id, description, category, context, result, created_at, completed_at
		 FROM tasks WHERE id = $1`, id).
		Scan(&t.ID, &t.SessionID, &t.Description, &t.Category, &t.Context, &t.Result, &t.CreatedAt, &t.CompletedAt)
	return t, err
}

func (q *Queries) ListTasks(ctx context.Context, limit int32) ([]Task, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, session_id, description, category, context, result, created_at, completed_at
		 FROM tasks ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Description, &t.Category, &t.Context, &t.Result, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CompleteTask(ctx context.Context, id int64, result []byte, completedAt time.Time) error {
	_, err := q.db.Exec(ctx, `UPDATE tasks SET result = $2, completed_at = $3 WHERE id = $1`, id, result, completedAt)
	return err
}

// --- Iteration cycles ------------------------------------------------------

type IterationCycleRow struct {
	ID             int64
	TaskID         int64
	IterationIndex int
	Phase          string
	Output         []byte
	Evaluation     []byte
	Decision       string
	Usage          []byte
	DurationMs     int64
	SkillsUsed     []byte
	Category       string
	CreatedAt      time.Time
}

type CreateIterationCycleParams struct {
	ID             int64
	TaskID         int64
	IterationIndex int
	Phase          string
	Output         []byte
	Evaluation     []byte
	Decision       string
	Usage          []byte
	DurationMs     int64
	SkillsUsed     []byte
	Category       string
}

func (q *Queries) CreateIterationCycle(ctx context.Context, p CreateIterationCycleParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO iteration_cycles
		   (id, task_id, iteration_index, phase, output, evaluation, decision, usage, duration_ms, skills_used, category)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.TaskID, p.IterationIndex, p.Phase, p.Output, p.Evaluation, p.Decision, p.Usage, p.DurationMs, p.SkillsUsed, p.Category)
	return err
}

func (q *Queries) ListIterationCyclesByTask(ctx context.Context, taskID int64) ([]IterationCycleRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, task_id, iteration_index, phase, output, evaluation, decision, usage, duration_ms, skills_used, category, created_at
		 FROM iteration_cycles WHERE task_id = $1 ORDER BY iteration_index ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IterationCycleRow
	for rows.Next() {
		var c IterationCycleRow
		if err := rows.Scan(&c.ID, &c.TaskID, &c.IterationIndex, &c.Phase, &c.Output, &c.Evaluation,
			&c.Decision, &c.Usage, &c.DurationMs, &c.SkillsUsed, &c.Category, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Learnings -------------------------------------------------------------

type LearningRow struct {
	ID              int64
	Type            string
	Content         string
	Category        string
	Confidence      float64
	SourceTaskID    *int64
	ReinforcedCount int
	LastUsed        *time.Time
	CreatedAt       time.Time
}

type UpsertLearningParams struct {
	ID              int64
	Type            string
	Content         string
	Category        string
	Confidence      float64
	SourceTaskID    *int64
	ReinforcedCount int
	LastUsed        *time.Time
}

func (q *Queries) UpsertLearning(ctx context.Context, p UpsertLearningParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO learnings (id, type, content, category, confidence, source_task_id, reinforced_count, last_used)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   content = EXCLUDED.content, confidence = EXCLUDED.confidence,
		   reinforced_count = EXCLUDED.reinforced_count, last_used = EXCLUDED.last_used`,
		p.ID, p.Type, p.Content, p.Category, p.Confidence, p.SourceTaskID, p.ReinforcedCount, p.LastUsed)
	return err
}

func (q *Queries) ListLearningsByCategory(ctx context.Context, category string) ([]LearningRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, type, content, category, confidence, source_task_id, reinforced_count, last_used, created_at
		 FROM learnings WHERE category = $1 OR category = '' ORDER BY confidence DESC`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LearningRow
	for rows.Next() {
		var l LearningRow
		if err := rows.Scan(&l.ID, &l.Type, &l.Content, &l.Category, &l.Confidence, &l.SourceTaskID,
			&l.ReinforcedCount, &l.LastUsed, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (q *Queries) ReinforceLearning(ctx context.Context, id int64, now time.Time) error {
	_, err := q.db.Exec(ctx,
		`UPDATE learnings SET reinforced_count = reinforced_count + 1, last_used = $2 WHERE id = $1`, id, now)
	return err
}

func (q *Queries) DeleteLearning(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM learnings WHERE id = $1`, id)
	return err
}

// --- Skills & effectiveness -------------------------------------------------

type SkillRow struct {
	Name        string
	Kind        string
	Description string
	Body        string
	Category    string
}

func (q *Queries) ListSkills(ctx context.Context) ([]SkillRow, error) {
	rows, err := q.db.Query(ctx, `SELECT name, kind, description, body, category FROM skills`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SkillRow
	for rows.Next() {
		var s SkillRow
		if err := rows.Scan(&s.Name, &s.Kind, &s.Description, &s.Body, &s.Category); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) UpsertSkill(ctx context.Context, s SkillRow) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO skills (name, kind, description, body, category) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (name) DO UPDATE SET kind=EXCLUDED.kind, description=EXCLUDED.description,
		   body=EXCLUDED.body, category=EXCLUDED.category`,
		s.Name, s.Kind, s.Description, s.Body, s.Category)
	return err
}

type SkillEffectivenessRow struct {
	SkillName    string
	TaskCategory string
	AvgScore     float64
	SampleCount  int
	LastUsed     *time.Time
}

func (q *Queries) GetSkillEffectiveness(ctx context.Context, skillName, category string) (SkillEffectivenessRow, error) {
	var r SkillEffectivenessRow
	err := q.db.QueryRow(ctx,
		`SELECT skill_name, task_category, avg_score, sample_count, last_used
		 FROM skill_effectiveness WHERE skill_name = $1 AND task_category = $2`, skillName, category).
		Scan(&r.SkillName, &r.TaskCategory, &r.AvgScore, &r.SampleCount, &r.LastUsed)
	return r, err
}

func (q *Queries) UpsertSkillEffectiveness(ctx context.Context, r SkillEffectivenessRow) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO skill_effectiveness (skill_name, task_category, avg_score, sample_count, last_used)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (skill_name, task_category) DO UPDATE SET
		   avg_score = EXCLUDED.avg_score, sample_count = EXCLUDED.sample_count, last_used = EXCLUDED.last_used`,
		r.SkillName, r.TaskCategory, r.AvgScore, r.SampleCount, r.LastUsed)
	return err
}

// --- Usage events ------------------------------------------------------

type UsageEventRow struct {
	ID               int64
	TaskID           int64
	Model            string
	Phase            string
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	CostUSD          float64
	CreatedAt        time.Time
}

func (q *Queries) CreateUsageEvent(ctx context.Context, r UsageEventRow) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO usage_events
		   (id, task_id, model, phase, input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, cost_usd)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.TaskID, r.Model, r.Phase, r.InputTokens, r.OutputTokens, r.CacheReadTokens, r.CacheWriteTokens, r.CostUSD)
	return err
}

func (q *Queries) ListUsageEventsByTask(ctx context.Context, taskID int64) ([]UsageEventRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, task_id, model, phase, input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, cost_usd, created_at
		 FROM usage_events WHERE task_id = $1 ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageEventRow
	for rows.Next() {
		var r UsageEventRow
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Model, &r.Phase, &r.InputTokens, &r.OutputTokens,
			&r.CacheReadTokens, &r.CacheWriteTokens, &r.CostUSD, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Scheduled patterns (daemon cron, §4.10) --------------------------------

type ScheduledPatternRow struct {
	ID           int64
	Description  string
	Frequency    string
	TaskTemplate []byte
	Status       string
}

func (q *Queries) ListApprovedPatterns(ctx context.Context) ([]ScheduledPatternRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, description, frequency, task_template, status FROM scheduled_patterns WHERE status = 'approved'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledPatternRow
	for rows.Next() {
		var p ScheduledPatternRow
		if err := rows.Scan(&p.ID, &p.Description, &p.Frequency, &p.TaskTemplate, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
