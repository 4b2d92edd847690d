package services

import (
	"errors"
	"strconv"
	"strings"

	"bamboolab/models"

	"gorm.io/gorm"
)

// ErrCandidateNotFound means neither the exact nor the substring lookup
// matched a registration number within the requested exam type.
var ErrCandidateNotFound = errors.New("candidate not found")

// prizeTiers is the award ladder from best to worst. The trailing empty
// string is the no-prize tier. Matching against a candidate's prize label is
// case-insensitive substring containment, first hit wins.
var prizeTiers = []string{"Nhất", "Nhì", "Ba", "Khuyến khích", ""}

// rankDescFallback is reported when the stored rank label is not numeric.
// Legacy placeholder carried over from the result sheets; do not recompute.
const rankDescFallback = 95

var examDisplayNames = map[string]string{
	"data1": "Kỳ thi chọn HSG tỉnh lớp 11 tỉnh Hà Tĩnh",
	"data2": "Kỳ thi chọn HSG tỉnh lớp 10 tỉnh Hà Tĩnh",
}

// HigherPrizeInfo describes what it would take to reach the next prize tier.
type HigherPrizeInfo struct {
	NextPrize    string  `json:"next_prize"`
	MinScore     float64 `json:"min_score"`
	PointsNeeded float64 `json:"points_needed"`
}

// RankingReport is the full standing of one candidate within an exam type.
type RankingReport struct {
	SBD                 string           `json:"sbd"`
	Name                string           `json:"name"`
	Birth               string           `json:"birth"`
	Place               string           `json:"place"`
	Sex                 string           `json:"sex"`
	ClassName           string           `json:"class_name"`
	School              string           `json:"school"`
	Subject             string           `json:"subject"`
	Score               float64          `json:"score"`
	Rank                string           `json:"rank"`
	Prize               string           `json:"prize"`
	TopScoreSubject     float64          `json:"top_score_subject"`
	RankDesc            int              `json:"rank_desc"`
	RankPosition        int              `json:"rank_position"`
	SubjectRank         int              `json:"subject_rank"`
	SubjectRankDesc     int              `json:"subject_rank_desc"`
	SubjectRankPosition int              `json:"subject_rank_position"`
	CountAllCandidate   int              `json:"count_all_candidate"`
	AverageScoreSubject float64          `json:"average_score_subject"`
	HigherPrizeInfo     *HigherPrizeInfo `json:"higher_prize_info,omitempty"`
	ExamType            string           `json:"exam_type"`
	ExamDisplayName     string           `json:"exam_display_name"`
}

// RankingService computes a candidate's standing against everyone who sat the
// same exam. Pure read-side computation; the only write it can trigger is the
// lazy CSV import when a partition is still empty.
type RankingService struct {
	db       *gorm.DB
	importer *ImportService
}

func NewRankingService(db *gorm.DB, importer *ImportService) *RankingService {
	return &RankingService{db: db, importer: importer}
}

// Lookup resolves a registration number within an exam type and builds the
// ranking report. The lookup tries an exact SBD match first and falls back to
// substring containment; the fallback takes the earliest-inserted match.
func (s *RankingService) Lookup(sbd, examType string) (*RankingReport, error) {
	if err := s.importer.EnsurePopulated(examType); err != nil {
		return nil, err
	}

	sbd = strings.TrimSpace(sbd)

	var candidate models.Candidate
	err := s.db.Where("sbd = ? AND exam_type = ?", sbd, examType).
		Order("id").First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("sbd LIKE ? AND exam_type = ?", "%"+sbd+"%", examType).
			Order("id").First(&candidate).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.buildReport(&candidate, examType)
}

func (s *RankingService) buildReport(candidate *models.Candidate, examType string) (*RankingReport, error) {
	var topScore float64
	err := s.db.Model(&models.Candidate{}).
		Where("subject = ? AND exam_type = ?", candidate.Subject, examType).
		Select("MAX(score)").Scan(&topScore).Error
	if err != nil {
		return nil, err
	}

	var allCandidates int64
	if err := s.db.Model(&models.Candidate{}).
		Where("exam_type = ?", examType).Count(&allCandidates).Error; err != nil {
		return nil, err
	}

	// Global rank: ties share a position, counted with strictly-greater.
	var betterScoreAll int64
	if err := s.db.Model(&models.Candidate{}).
		Where("score > ? AND exam_type = ?", candidate.Score, examType).
		Count(&betterScoreAll).Error; err != nil {
		return nil, err
	}
	rankPosition := int(betterScoreAll) + 1

	var averageScore float64
	err = s.db.Model(&models.Candidate{}).
		Where("subject = ? AND exam_type = ?", candidate.Subject, examType).
		Select("AVG(score)").Scan(&averageScore).Error
	if err != nil {
		return nil, err
	}

	var subjectTotal int64
	if err := s.db.Model(&models.Candidate{}).
		Where("subject = ? AND exam_type = ?", candidate.Subject, examType).
		Count(&subjectTotal).Error; err != nil {
		return nil, err
	}

	// Subject rank counts greater-or-equal, unlike the strictly-greater rule
	// above. The asymmetry is the published behavior; keep it.
	var betterOrEqual int64
	if err := s.db.Model(&models.Candidate{}).
		Where("subject = ? AND score >= ? AND exam_type = ?", candidate.Subject, candidate.Score, examType).
		Count(&betterOrEqual).Error; err != nil {
		return nil, err
	}
	subjectRankPosition := int(betterOrEqual)

	subjectRank := percentile(subjectRankPosition, int(subjectTotal))

	rankDesc := rankDescFallback
	if rank, err := strconv.Atoi(strings.TrimSpace(candidate.Rank)); err == nil {
		rankDesc = 100 - rank
	}

	higherPrize, err := s.higherPrizeInfo(candidate, examType)
	if err != nil {
		return nil, err
	}

	displayName, ok := examDisplayNames[examType]
	if !ok {
		displayName = examDisplayNames["data1"]
	}

	return &RankingReport{
		SBD:                 candidate.SBD,
		Name:                candidate.Name,
		Birth:               candidate.Birth,
		Place:               candidate.Place,
		Sex:                 candidate.Sex,
		ClassName:           candidate.ClassName,
		School:              candidate.School,
		Subject:             candidate.Subject,
		Score:               candidate.Score,
		Rank:                candidate.Rank,
		Prize:               candidate.Prize,
		TopScoreSubject:     topScore,
		RankDesc:            rankDesc,
		RankPosition:        rankPosition,
		SubjectRank:         subjectRank,
		SubjectRankDesc:     100 - subjectRank,
		SubjectRankPosition: subjectRankPosition,
		CountAllCandidate:   int(allCandidates),
		AverageScoreSubject: roundTo(averageScore, 2),
		HigherPrizeInfo:     higherPrize,
		ExamType:            examType,
		ExamDisplayName:     displayName,
	}, nil
}

// higherPrizeInfo reports the cheapest route to the next prize tier up, or
// nil when the candidate already holds the top tier or nobody in the subject
// holds the next tier.
func (s *RankingService) higherPrizeInfo(candidate *models.Candidate, examType string) (*HigherPrizeInfo, error) {
	currentIndex := len(prizeTiers) - 1
	for i, tier := range prizeTiers {
		if candidate.Prize != "" && tier != "" &&
			strings.Contains(strings.ToLower(candidate.Prize), strings.ToLower(tier)) {
			currentIndex = i
			break
		}
	}

	if currentIndex == 0 {
		return nil, nil
	}

	nextPrize := prizeTiers[currentIndex-1]

	var holder models.Candidate
	err := s.db.Where("subject = ? AND exam_type = ? AND LOWER(prize) LIKE ?",
		candidate.Subject, examType, "%"+strings.ToLower(nextPrize)+"%").
		Order("score").First(&holder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &HigherPrizeInfo{
		NextPrize:    nextPrize,
		MinScore:     holder.Score,
		PointsNeeded: roundTo(holder.Score-candidate.Score, 2),
	}, nil
}
