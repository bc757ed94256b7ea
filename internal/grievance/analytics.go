package grievance

import "encoding/json"

type DashboardStats struct {
	TotalGrievances       int    `json:"totalGrievances"`
	Resolved              int    `json:"resolved"`
	InProgress            int    `json:"inProgress"`
	Pending               int    `json:"pending"`
	AverageResolutionTime string `json:"averageResolutionTime"`
}

type OfficerPerformance struct {
	OfficerName       string `json:"officerName"`
	Assigned          int    `json:"assigned"`
	Resolved          int    `json:"resolved"`
	ResolutionRate    string `json:"resolutionRate"`
	AvgResolutionTime string `json:"avgResolutionTime"`
}

type MonthlyTrend struct {
	Month     string `json:"month"`
	Submitted int    `json:"submitted"`
	Resolved  int    `json:"resolved"`
}

type SystemMetrics struct {
	ResponseTime      string `json:"responseTime"`
	ResolutionRate    string `json:"resolutionRate"`
	SatisfactionScore string `json:"satisfactionScore"`
	ReopeningRate     string `json:"reopeningRate"`
}

type ExtendedAnalytics struct {
	CategoryBreakdown json.RawMessage `json:"categoryBreakdown"`
	MonthlyTrends     []MonthlyTrend  `json:"monthlyTrends"`
	SystemMetrics     SystemMetrics   `json:"systemMetrics"`
}

type Analytics struct {
	DashboardStats
	OfficerPerformance []OfficerPerformance `json:"officerPerformance"`
	CategoryBreakdown  json.RawMessage      `json:"categoryBreakdown,omitempty"`
	MonthlyTrends      []MonthlyTrend       `json:"monthlyTrends"`
	SystemMetrics      SystemMetrics        `json:"systemMetrics"`
}

func MergeAnalytics(stats DashboardStats, perf []OfficerPerformance, ext ExtendedAnalytics) Analytics {
	if perf == nil {
		perf = []OfficerPerformance{}
	}
	trends := ext.MonthlyTrends
	if trends == nil {
		trends = []MonthlyTrend{}
	}
	return Analytics{
		DashboardStats:     stats,
		OfficerPerformance: perf,
		CategoryBreakdown:  ext.CategoryBreakdown,
		MonthlyTrends:      trends,
		SystemMetrics:      ext.SystemMetrics,
	}
}
