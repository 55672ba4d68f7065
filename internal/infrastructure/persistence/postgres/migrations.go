// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_academics",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_risk",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_notifications",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    school_id UUID NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    class_name VARCHAR(50) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    risk_level VARCHAR(10) NOT NULL DEFAULT 'LOW',
    last_all_flags_resolved_at TIMESTAMP WITH TIME ZONE,

    -- Socio-economic profile
    ubudehe_level SMALLINT NOT NULL DEFAULT 0,
    has_parents BOOLEAN NOT NULL DEFAULT TRUE,
    family_stable BOOLEAN NOT NULL DEFAULT TRUE,
    distance_to_school_km DECIMAL(6,2),

    -- Guardian contacts (JSONB: name, relationship, phone, email)
    guardians JSONB NOT NULL DEFAULT '[]'::jsonb,

    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status IN ('active', 'transferred', 'graduated', 'inactive')),
    CONSTRAINT valid_risk_level CHECK (risk_level IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
    CONSTRAINT valid_ubudehe CHECK (ubudehe_level BETWEEN 0 AND 4),
    CONSTRAINT valid_distance CHECK (distance_to_school_km IS NULL OR distance_to_school_km >= 0)
);

CREATE INDEX IF NOT EXISTS idx_students_school ON students(school_id);
CREATE INDEX IF NOT EXISTS idx_students_school_status ON students(school_id, status);
CREATE INDEX IF NOT EXISTS idx_students_risk_level ON students(school_id, risk_level) WHERE risk_level != 'LOW';
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE ACADEMICS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create attendance and performance tables
-- Version: 002

CREATE TABLE IF NOT EXISTS attendance_records (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    school_id UUID NOT NULL,
    date DATE NOT NULL,
    status VARCHAR(10) NOT NULL,
    recorded_by VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_attendance_status CHECK (status IN ('PRESENT', 'ABSENT', 'LATE', 'EXCUSED')),

    -- One register entry per student per calendar day
    CONSTRAINT uq_attendance_student_day UNIQUE (student_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance_records(student_id, date);
CREATE INDEX IF NOT EXISTS idx_attendance_school_date ON attendance_records(school_id, date);

CREATE TABLE IF NOT EXISTS performance_records (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    school_id UUID NOT NULL,
    subject VARCHAR(100) NOT NULL,
    term SMALLINT NOT NULL,
    academic_year VARCHAR(10) NOT NULL,
    score DECIMAL(7,2) NOT NULL,
    max_score DECIMAL(7,2) NOT NULL,
    grade VARCHAR(2) NOT NULL,
    assessed_at TIMESTAMP WITH TIME ZONE NOT NULL,
    recorded_by VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_term CHECK (term BETWEEN 1 AND 3),
    CONSTRAINT valid_scores CHECK (max_score > 0 AND score >= 0 AND score <= max_score)
);

CREATE INDEX IF NOT EXISTS idx_performance_student_term
    ON performance_records(student_id, academic_year, term, assessed_at DESC);
CREATE INDEX IF NOT EXISTS idx_performance_overall
    ON performance_records(student_id, academic_year, term, assessed_at DESC)
    WHERE subject = 'Overall';
`

const migration002Down = `
DROP TABLE IF EXISTS performance_records;
DROP TABLE IF EXISTS attendance_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE RISK
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create risk flags and rule settings tables
-- Version: 003

CREATE TABLE IF NOT EXISTS risk_flags (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    school_id UUID NOT NULL,
    type VARCHAR(20) NOT NULL,
    severity VARCHAR(10) NOT NULL,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    evidence JSONB NOT NULL DEFAULT '{}'::jsonb,
    auto_generated BOOLEAN NOT NULL DEFAULT TRUE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
    resolved_at TIMESTAMP WITH TIME ZONE,
    resolved_by VARCHAR(100),
    resolution_notes TEXT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_flag_type CHECK (type IN ('ATTENDANCE', 'PERFORMANCE', 'SOCIOECONOMIC', 'DISTANCE', 'COMBINED')),
    CONSTRAINT valid_flag_severity CHECK (severity IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
    CONSTRAINT resolved_fields CHECK (NOT is_resolved OR resolved_at IS NOT NULL)
);

-- Database-level backstop for flag uniqueness: at most one open flag per
-- student per risk type, no matter how many detection runs race.
CREATE UNIQUE INDEX IF NOT EXISTS uq_risk_flags_open
    ON risk_flags(student_id, type)
    WHERE is_active AND NOT is_resolved;

CREATE INDEX IF NOT EXISTS idx_risk_flags_student ON risk_flags(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_risk_flags_school_open
    ON risk_flags(school_id, created_at DESC)
    WHERE is_active AND NOT is_resolved;

CREATE TABLE IF NOT EXISTS risk_rule_settings (
    school_id UUID PRIMARY KEY,
    settings JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS risk_rule_settings;
DROP TABLE IF EXISTS risk_flags;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create notifications table
-- Version: 004

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    school_id UUID NOT NULL,
    student_id UUID NOT NULL,
    type VARCHAR(30) NOT NULL,
    recipient VARCHAR(10) NOT NULL,
    channel VARCHAR(10) NOT NULL,
    severity VARCHAR(10) NOT NULL DEFAULT '',
    title VARCHAR(200) NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    status VARCHAR(10) NOT NULL DEFAULT 'pending',
    sent_at TIMESTAMP WITH TIME ZONE,
    failed_at TIMESTAMP WITH TIME ZONE,
    last_err TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_recipient_kind CHECK (recipient IN ('admin', 'guardian')),
    CONSTRAINT valid_notification_status CHECK (status IN ('pending', 'sent', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_notifications_school ON notifications(school_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_student ON notifications(student_id, created_at DESC);
`

const migration004Down = `
DROP TABLE IF EXISTS notifications;
`
