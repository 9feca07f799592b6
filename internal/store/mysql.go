package store

import (
	"context"
	"fmt"

	"github.com/dgallion1/examkb/internal/export"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KnowledgeNode is the gorm model of a knowledge_tree row.
type KnowledgeNode struct {
	ID          string  `gorm:"primaryKey;size:191"`
	Code        string  `gorm:"size:64;not null"`
	Title       string  `gorm:"type:text;not null"`
	Content     *string `gorm:"type:text"`
	ParentID    *string `gorm:"size:191;index"`
	SubjectCode string  `gorm:"size:64;not null;index"`
	Level       int     `gorm:"not null"`
	Importance  int     `gorm:"not null;default:0"`
	NodeType    string  `gorm:"size:32;not null"`
	PointType   *string `gorm:"size:255"`
	DrugName    *string `gorm:"size:64"`
}

func (KnowledgeNode) TableName() string {
	return export.SQLTable
}

// MySQLStore writes records through gorm.
type MySQLStore struct {
	DB        *gorm.DB
	BatchSize int
}

func NewMySQL(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return &MySQLStore{DB: db, BatchSize: 200}, nil
}

func (s *MySQLStore) Init(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(&KnowledgeNode{}); err != nil {
		return fmt.Errorf("migrate knowledge_tree: %w", err)
	}
	return nil
}

func (s *MySQLStore) Replace(ctx context.Context, subjectCode string, records []export.Record) error {
	nodes := toNodes(records)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subject_code = ?", subjectCode).Delete(&KnowledgeNode{}).Error; err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		if len(nodes) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(nodes, s.BatchSize).Error; err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
		return nil
	})
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toNodes(records []export.Record) []KnowledgeNode {
	nodes := make([]KnowledgeNode, len(records))
	for i, r := range records {
		nodes[i] = KnowledgeNode{
			ID:          r.ID,
			Code:        r.Code,
			Title:       r.Title,
			Content:     nullString(r.Content),
			ParentID:    nullString(r.ParentID),
			SubjectCode: r.SubjectCode,
			Level:       r.Level,
			Importance:  r.Importance,
			NodeType:    r.Type,
			PointType:   nullString(r.PointType),
			DrugName:    nullString(r.DrugName),
		}
	}
	return nodes
}
