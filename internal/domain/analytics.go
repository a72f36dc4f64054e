package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Bucket filters attempts by percentage score.
type Bucket string

const (
	BucketAll       Bucket = ""
	BucketBelow50   Bucket = "lt50"
	BucketAtLeast50 Bucket = "gte50"
	Bucket50To75    Bucket = "50to75"
	BucketAtLeast75 Bucket = "gte75"
)

// SortOrder orders analytics rows.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
	SortScoreDesc SortOrder = "score_desc"
	SortScoreAsc  SortOrder = "score_asc"
)

// AnalyticsQuery narrows the attempt list returned to the instructor.
type AnalyticsQuery struct {
	Bucket Bucket
	Sort   SortOrder
	Search string
}

// AttemptRow is an attempt joined with the student's profile.
type AttemptRow struct {
	Student     User      `json:"studentId"`
	Answers     []Answer  `json:"answers"`
	SubmittedAt time.Time `json:"submittedAt"`
	Score       Score     `json:"score"`
	Percentage  *float64  `json:"percentage"`
}

// Summary aggregates attempts for a quiz.
type Summary struct {
	QuizID         string    `json:"quizId"`
	TotalQuestions int       `json:"totalQuestions"`
	Attempts       int       `json:"attempts"`
	Scored         int       `json:"scored"`
	MaxScore       *int      `json:"maxScore"`
	MinScore       *int      `json:"minScore"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Analytics is the instructor's read-only projection of a quiz.
type Analytics struct {
	Quiz      Details      `json:"quiz"`
	Questions []Question   `json:"questions"`
	Attempts  []AttemptRow `json:"attempts"`
	Summary   Summary      `json:"summary"`
}

// Percentage returns score as a percentage of total, rounded to two decimals.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}

// Summarize computes counts and score extremes. Unscored attempts are counted
// but do not contribute to min/max.
func Summarize(q Quiz, now time.Time) Summary {
	s := Summary{QuizID: q.ID, TotalQuestions: len(q.Questions), Attempts: len(q.Attempts), UpdatedAt: now}
	for _, attempt := range q.Attempts {
		score, ok := attempt.Score.Value()
		if !ok {
			continue
		}
		s.Scored++
		if s.MaxScore == nil || score > *s.MaxScore {
			v := score
			s.MaxScore = &v
		}
		if s.MinScore == nil || score < *s.MinScore {
			v := score
			s.MinScore = &v
		}
	}
	return s
}

// BuildAnalytics joins attempts with users and applies the query.
func BuildAnalytics(q Quiz, users map[string]User, query AnalyticsQuery, now time.Time) Analytics {
	total := len(q.Questions)
	rows := make([]AttemptRow, 0, len(q.Attempts))
	for _, attempt := range q.Attempts {
		user, ok := users[attempt.StudentID]
		if !ok {
			user = User{ID: attempt.StudentID}
		}
		row := AttemptRow{
			Student:     user,
			Answers:     append([]Answer(nil), attempt.Answers...),
			SubmittedAt: attempt.SubmittedAt,
			Score:       attempt.Score,
		}
		if score, ok := attempt.Score.Value(); ok {
			p := Percentage(score, total)
			row.Percentage = &p
		}
		rows = append(rows, row)
	}

	rows = FilterRows(rows, query.Bucket)
	rows = SearchRows(rows, query.Search)
	SortRows(rows, query.Sort)

	return Analytics{
		Quiz:      q.Details(),
		Questions: q.Questions,
		Attempts:  rows,
		Summary:   Summarize(q, now),
	}
}

// FilterRows keeps rows in the bucket. Unscored rows only survive BucketAll.
func FilterRows(rows []AttemptRow, bucket Bucket) []AttemptRow {
	if bucket == BucketAll {
		return rows
	}
	out := rows[:0]
	for _, row := range rows {
		if row.Percentage == nil {
			continue
		}
		p := *row.Percentage
		var keep bool
		switch bucket {
		case BucketBelow50:
			keep = p < 50
		case BucketAtLeast50:
			keep = p >= 50
		case Bucket50To75:
			keep = p >= 50 && p < 75
		case BucketAtLeast75:
			keep = p >= 75
		default:
			keep = true
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// SearchRows keeps rows whose student name or email contains the query, case-insensitively.
func SearchRows(rows []AttemptRow, query string) []AttemptRow {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	out := rows[:0]
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Student.Name), query) ||
			strings.Contains(strings.ToLower(row.Student.Email), query) {
			out = append(out, row)
		}
	}
	return out
}

// SortRows orders rows in place. Unscored attempts sort after scored ones.
func SortRows(rows []AttemptRow, order SortOrder) {
	switch order {
	case SortNameAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			return strings.ToLower(rows[i].Student.Name) < strings.ToLower(rows[j].Student.Name)
		})
	case SortNameDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			return strings.ToLower(rows[i].Student.Name) > strings.ToLower(rows[j].Student.Name)
		})
	case SortScoreDesc, SortScoreAsc:
		desc := order == SortScoreDesc
		sort.SliceStable(rows, func(i, j int) bool {
			si, okI := rows[i].Score.Value()
			sj, okJ := rows[j].Score.Value()
			if okI != okJ {
				return okI
			}
			if desc {
				return si > sj
			}
			return si < sj
		})
	}
}

// ParseBucket validates a bucket query value.
func ParseBucket(raw string) (Bucket, error) {
	switch b := Bucket(raw); b {
	case BucketAll, BucketBelow50, BucketAtLeast50, Bucket50To75, BucketAtLeast75:
		return b, nil
	}
	return "", Validationf("unknown filter %q", raw)
}

// ParseSortOrder validates a sort query value.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch o := SortOrder(raw); o {
	case SortNone, SortNameAsc, SortNameDesc, SortScoreDesc, SortScoreAsc:
		return o, nil
	}
	return "", Validationf("unknown sort %q", raw)
}
