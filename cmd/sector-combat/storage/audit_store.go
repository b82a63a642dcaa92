package storage

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sectorwars/combat-engine/cmd/sector-combat/core"
	"github.com/sectorwars/combat-engine/pkg/logger"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// SessionRecord is one combat session's persistent row
type SessionRecord struct {
	ID          uint   `gorm:"primarykey"`
	SessionID   string `gorm:"uniqueIndex;size:36"`
	Seed        int64
	UnitCount   int
	ScaleClass  string
	StartedAt   time.Time
	ConcludedAt *time.Time
}

// ActionRecord is one audited command, accepted or rejected
type ActionRecord struct {
	ID        uint   `gorm:"primarykey"`
	SessionID string `gorm:"index;size:36"`
	Seq       int
	Tick      int
	ActorID   string `gorm:"size:36"`
	TargetID  string `gorm:"size:36"`
	Type      string
	Accepted  bool
	Reason    string
	LoggedAt  time.Time
}

// ChecksumRecord is one tick's recorded state checksum, kept for
// post-hoc integrity investigation
type ChecksumRecord struct {
	ID        uint   `gorm:"primarykey"`
	SessionID string `gorm:"index;size:36"`
	Tick      int
	Checksum  uint64
}

// OutcomeRecord is the session conclusion row
type OutcomeRecord struct {
	ID          uint   `gorm:"primarykey"`
	SessionID   string `gorm:"uniqueIndex;size:36"`
	Kind        string
	WinningTeam string
	Ticks       int
	SalvageLots int
	ConcludedAt time.Time
}

// AuditStore persists session audit trails and outcomes in sqlite.
// With an empty path the store runs in memory, which is what tests and
// one-shot scenario runs use.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore opens or creates the store at the given path
func NewAuditStore(path string) (*AuditStore, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	if err := db.AutoMigrate(&SessionRecord{}, &ActionRecord{}, &ChecksumRecord{}, &OutcomeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit store: %w", err)
	}

	logger.Debugf("Audit store ready at %q", dsn)
	return &AuditStore{db: db}, nil
}

// SaveSession records a session's opening row
func (s *AuditStore) SaveSession(sessionID uuid.UUID, seed int64, unitCount int, scaleClass string, startedAt time.Time) error {
	record := SessionRecord{
		SessionID:  sessionID.String(),
		Seed:       seed,
		UnitCount:  unitCount,
		ScaleClass: scaleClass,
		StartedAt:  startedAt,
	}
	return s.db.Create(&record).Error
}

// SaveAuditLog writes the full immutable command record for a session
func (s *AuditStore) SaveAuditLog(log *core.AuditLog) error {
	entries := log.Entries()
	if len(entries) == 0 {
		return nil
	}

	records := make([]ActionRecord, 0, len(entries))
	for _, e := range entries {
		target := ""
		if e.Action.TargetID != nil {
			target = e.Action.TargetID.String()
		}
		records = append(records, ActionRecord{
			SessionID: log.SessionID().String(),
			Seq:       e.Seq,
			Tick:      e.Tick,
			ActorID:   e.Action.ActorUnitID.String(),
			TargetID:  target,
			Type:      string(e.Action.Type),
			Accepted:  e.Accepted,
			Reason:    string(e.Reason),
			LoggedAt:  e.LoggedAt,
		})
	}

	return s.db.CreateInBatches(records, 200).Error
}

// SaveChecksum records one tick's state checksum
func (s *AuditStore) SaveChecksum(sessionID uuid.UUID, tick int, checksum uint64) error {
	return s.db.Create(&ChecksumRecord{
		SessionID: sessionID.String(),
		Tick:      tick,
		Checksum:  checksum,
	}).Error
}

// SaveOutcome records the session conclusion and stamps the session
// row
func (s *AuditStore) SaveOutcome(outcome *models.CombatOutcome) error {
	record := OutcomeRecord{
		SessionID:   outcome.SessionID.String(),
		Kind:        string(outcome.Kind),
		WinningTeam: outcome.WinningTeam,
		Ticks:       outcome.Ticks,
		SalvageLots: len(outcome.Salvage),
		ConcludedAt: outcome.ConcludedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}

	return s.db.Model(&SessionRecord{}).
		Where("session_id = ?", outcome.SessionID.String()).
		Update("concluded_at", outcome.ConcludedAt).Error
}

// ActionsForSession returns a session's audited commands in sequence
// order
func (s *AuditStore) ActionsForSession(sessionID uuid.UUID) ([]ActionRecord, error) {
	var records []ActionRecord
	err := s.db.Where("session_id = ?", sessionID.String()).
		Order("seq asc").Find(&records).Error
	return records, err
}

// ChecksumsForSession returns a session's recorded checksums by tick
func (s *AuditStore) ChecksumsForSession(sessionID uuid.UUID) ([]ChecksumRecord, error) {
	var records []ChecksumRecord
	err := s.db.Where("session_id = ?", sessionID.String()).
		Order("tick asc").Find(&records).Error
	return records, err
}

// OutcomeForSession returns the conclusion row, if the session has one
func (s *AuditStore) OutcomeForSession(sessionID uuid.UUID) (*OutcomeRecord, error) {
	var record OutcomeRecord
	err := s.db.Where("session_id = ?", sessionID.String()).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
