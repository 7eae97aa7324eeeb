package dashboard

import (
	"fmt"
	"sort"
	"time"

	"buildtrack/domain/project"
	"buildtrack/domain/sheet"
	"buildtrack/domain/site"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
)

const (
	GranularityYear    = "year"
	GranularityQuarter = "quarter"
	GranularityMonth   = "month"
	GranularityDay     = "day"
)

type DashboardQuery struct {
	ConstructionSiteIDs []types.ID `form:"constructionSiteIds"`
	ProjectIDs          []types.ID `form:"projectIds"`
	StatusIDs           []types.ID `form:"statusIds"`
	ExecutorIDs         []types.ID `form:"executorIds"`

	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`

	Granularity string `form:"granularity"`
}

type DatePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ProjectChart struct {
	ProjectID   types.ID    `json:"projectId"`
	ProjectName string      `json:"projectName"`
	Data        []DatePoint `json:"data"`
}

type DashboardData struct {
	ConstructionSites []site.ConstructionSiteDetail `json:"constructionSites"`
	Projects          []project.ProjectDetail       `json:"projects"`
	OverallCompletion float64                       `json:"overallCompletion"`
	ChartData         []ProjectChart                `json:"chartData"`
}

var (
	QueryDashboardDataFunc = QueryDashboardData
)

// DateKey buckets a completion time for chart grouping. An unknown
// granularity falls back to month, matching the query default.
func DateKey(t time.Time, granularity string) string {
	switch granularity {
	case GranularityYear:
		return t.Format("2006")
	case GranularityQuarter:
		quarter := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", t.Year(), quarter)
	case GranularityDay:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01")
	}
}

// OverallCompletion is the share of completed sheets over all sheets in
// scope, as a percentage rounded to two decimals.
func OverallCompletion(sheets []sheet.ProjectSheet) float64 {
	if len(sheets) == 0 {
		return 0
	}
	completed := 0
	for _, record := range sheets {
		if record.IsCompleted {
			completed++
		}
	}
	ratio := float64(completed) / float64(len(sheets)) * 100
	return float64(int(ratio*100+0.5)) / 100
}

// BuildChartData groups completed sheets per project by date key. Projects
// with no completed sheets in scope are omitted, the same way a chart with
// no points would be.
func BuildChartData(sheets []sheet.ProjectSheet, projects []project.ProjectDetail, granularity string) []ProjectChart {
	completedByProject := map[types.ID]map[string]int{}
	for _, record := range sheets {
		if !record.IsCompleted || record.CompletedAt.Time().IsZero() {
			continue
		}
		buckets := completedByProject[record.ProjectID]
		if buckets == nil {
			buckets = map[string]int{}
			completedByProject[record.ProjectID] = buckets
		}
		buckets[DateKey(record.CompletedAt.Time(), granularity)]++
	}

	charts := []ProjectChart{}
	for _, p := range projects {
		buckets := completedByProject[p.ID]
		if len(buckets) == 0 {
			continue
		}
		keys := make([]string, 0, len(buckets))
		for key := range buckets {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		points := make([]DatePoint, 0, len(keys))
		for _, key := range keys {
			points = append(points, DatePoint{Date: key, Count: buckets[key]})
		}
		charts = append(charts, ProjectChart{ProjectID: p.ID, ProjectName: p.Name, Data: points})
	}
	return charts
}

func QueryDashboardData(q DashboardQuery, s *session.Session) (*DashboardData, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	sheetsQuery := db.Model(&sheet.ProjectSheet{})
	if len(q.ConstructionSiteIDs) > 0 {
		var projectIds []types.ID
		if err := db.Model(&project.Project{}).Where("construction_site_id IN (?)", q.ConstructionSiteIDs).
			Pluck("id", &projectIds).Error; err != nil {
			return nil, err
		}
		if len(projectIds) == 0 {
			projectIds = []types.ID{0}
		}
		sheetsQuery = sheetsQuery.Where("project_id IN (?)", projectIds)
	}
	if len(q.ProjectIDs) > 0 {
		sheetsQuery = sheetsQuery.Where("project_id IN (?)", q.ProjectIDs)
	}
	if from, err := parseFilterTime(q.DateFrom); err == nil {
		sheetsQuery = sheetsQuery.Where("completed_at >= ?", from)
	}
	if to, err := parseFilterTime(q.DateTo); err == nil {
		sheetsQuery = sheetsQuery.Where("completed_at <= ?", to)
	}
	if len(q.StatusIDs) > 0 {
		sheetsQuery = sheetsQuery.Where("status_id IN (?)", q.StatusIDs)
	}
	if len(q.ExecutorIDs) > 0 {
		var sheetIds []types.ID
		if err := db.Model(&sheet.SheetExecutor{}).Where("user_id IN (?)", q.ExecutorIDs).
			Pluck("sheet_id", &sheetIds).Error; err != nil {
			return nil, err
		}
		if len(sheetIds) == 0 {
			sheetIds = []types.ID{0}
		}
		sheetsQuery = sheetsQuery.Where("id IN (?)", sheetIds)
	}

	sheets := []sheet.ProjectSheet{}
	if err := sheetsQuery.Scan(&sheets).Error; err != nil {
		return nil, err
	}

	sites, err := site.QuerySitesFunc(s)
	if err != nil {
		return nil, err
	}
	if len(q.ConstructionSiteIDs) > 0 {
		sites = filterSites(sites, q.ConstructionSiteIDs)
	}

	projects, err := project.QueryProjectsFunc(project.ProjectQuery{}, s)
	if err != nil {
		return nil, err
	}
	if len(q.ProjectIDs) > 0 {
		projects = filterProjects(projects, func(p project.ProjectDetail) bool {
			return containsID(q.ProjectIDs, p.ID)
		})
	} else if len(q.ConstructionSiteIDs) > 0 {
		projects = filterProjects(projects, func(p project.ProjectDetail) bool {
			return containsID(q.ConstructionSiteIDs, p.ConstructionSiteID)
		})
	}

	return &DashboardData{
		ConstructionSites: sites,
		Projects:          projects,
		OverallCompletion: OverallCompletion(sheets),
		ChartData:         BuildChartData(sheets, projects, q.Granularity),
	}, nil
}

// parseFilterTime accepts RFC 3339 timestamps and plain dates. Unparsable
// values disable the bound instead of failing the whole query.
func parseFilterTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func filterSites(sites []site.ConstructionSiteDetail, ids []types.ID) []site.ConstructionSiteDetail {
	result := []site.ConstructionSiteDetail{}
	for _, record := range sites {
		if containsID(ids, record.ID) {
			result = append(result, record)
		}
	}
	return result
}

func filterProjects(projects []project.ProjectDetail, keep func(project.ProjectDetail) bool) []project.ProjectDetail {
	result := []project.ProjectDetail{}
	for _, record := range projects {
		if keep(record) {
			result = append(result, record)
		}
	}
	return result
}

func containsID(ids []types.ID, id types.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
