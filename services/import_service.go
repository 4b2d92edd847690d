package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"bamboolab/models"

	"gorm.io/gorm"
)

// ErrDataUnavailable means the backing CSV for a partition could not be read.
var ErrDataUnavailable = errors.New("candidate data unavailable")

// Result sheets the platform knows about. The file stem doubles as the
// partition key (exam_type).
var candidateSourceFiles = []string{"data1.csv", "data2.csv"}

// ImportService loads candidate result sheets from CSV files into the
// database. Each source file is one partition; partitions import and fail
// independently of each other.
type ImportService struct {
	db      *gorm.DB
	dataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-partition import locks
}

func NewImportService(db *gorm.DB, dataDir string) *ImportService {
	return &ImportService{
		db:      db,
		dataDir: dataDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *ImportService) partitionLock(examType string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[examType]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[examType] = lock
	}
	return lock
}

// EnsurePopulated imports the partition's CSV if no candidate rows exist for
// it yet. Concurrent callers against the same empty partition serialize on a
// per-partition lock, and the emptiness check is repeated inside the lock so
// only one of them actually imports.
func (s *ImportService) EnsurePopulated(examType string) error {
	var count int64
	if err := s.db.Model(&models.Candidate{}).Where("exam_type = ?", examType).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	lock := s.partitionLock(examType)
	lock.Lock()
	defer lock.Unlock()

	if err := s.db.Model(&models.Candidate{}).Where("exam_type = ?", examType).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	imported, err := s.importPartition(examType)
	if err != nil {
		return err
	}
	log.Printf("Lazily imported %d candidates for exam type %s", imported, examType)
	return nil
}

// ImportAll wipes every candidate row and re-imports all known source files.
// A file that is missing or unreadable is reported but does not block the
// remaining files.
func (s *ImportService) ImportAll() (int, []error) {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Candidate{}).Error; err != nil {
		return 0, []error{fmt.Errorf("failed to clear candidates: %w", err)}
	}

	total := 0
	var problems []error
	for _, file := range candidateSourceFiles {
		examType := strings.TrimSuffix(file, filepath.Ext(file))
		count, err := s.importPartition(examType)
		if err != nil {
			log.Printf("Import of %s failed: %v", file, err)
			problems = append(problems, fmt.Errorf("%s: %w", file, err))
			continue
		}
		total += count
	}
	return total, problems
}

func (s *ImportService) importPartition(examType string) (int, error) {
	path := filepath.Join(s.dataDir, examType+".csv")
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrDataUnavailable, path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // trailing columns vary between sheets

	// First row is the header.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Skipping malformed CSV row in %s: %v", path, err)
			continue
		}

		candidate, err := parseCandidateRow(record, examType)
		if err != nil {
			log.Printf("Skipping row in %s: %v", path, err)
			continue
		}

		if err := s.db.Create(candidate).Error; err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// parseCandidateRow maps one CSV record onto a Candidate. The sheet layout is
// sbd, name, birth, place, sex, class_name, school, subject, score, rank,
// prize; extra columns are ignored. Scores use a comma as the decimal
// separator.
func parseCandidateRow(record []string, examType string) (*models.Candidate, error) {
	if len(record) < 11 {
		return nil, fmt.Errorf("row has %d columns, want at least 11", len(record))
	}

	scoreStr := strings.ReplaceAll(strings.TrimSpace(record[8]), ",", ".")
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid score %q for %s", record[8], record[1])
	}

	return &models.Candidate{
		SBD:       strings.TrimSpace(record[0]),
		Name:      record[1],
		Birth:     record[2],
		Place:     record[3],
		Sex:       record[4],
		ClassName: record[5],
		School:    record[6],
		Subject:   record[7],
		Score:     score,
		Rank:      record[9],
		Prize:     record[10],
		ExamType:  examType,
	}, nil
}
