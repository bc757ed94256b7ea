package portal

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"civicportal/internal/api"
	"civicportal/internal/grievance"
)

type adminDashboard struct {
	grievance.BoardView
	Nav *Nav `json:"nav,omitempty"`
}

// AdminDashboard loads the three admin lists at once and keeps the result as
// the session's board so later assignments can update it in place.
func (s *Server) AdminDashboard(w http.ResponseWriter, r *http.Request) api.Response {
	sess := currentSession(r)
	ctx := r.Context()

	var (
		g        errgroup.Group
		pending  []grievance.Grievance
		officers []grievance.Officer
		all      []grievance.Grievance
		errs     [3]error
	)
	g.Go(func() error {
		pending, errs[0] = s.upstream.PendingComplaints(ctx, sess.Credentials)
		return nil
	})
	g.Go(func() error {
		officers, errs[1] = s.upstream.Officers(ctx, sess.Credentials)
		return nil
	})
	g.Go(func() error {
		all, errs[2] = s.upstream.AllComplaints(ctx, sess.Credentials)
		return nil
	})
	// Failures are kept per source so they can be reported in a fixed order.
	g.Wait()

	rejected := [...]string{
		"Failed to fetch pending complaints",
		"Failed to fetch officers",
		"Failed to fetch all complaints",
	}
	for i, err := range errs {
		if err != nil {
			return upstreamFailure("admin dashboard", err, rejected[i], "Could not fetch dashboard data.")
		}
	}

	board := grievance.NewBoard(pending, all, officers)
	s.boards.Add(sess.ID, board)
	return api.Response{Data: adminDashboard{
		BoardView: board.View(),
		Nav:       NavFor(sess.Role(), "/admin/dashboard"),
	}}
}

type assignRequest struct {
	GrievanceID string `json:"grievanceId"`
	OfficerName string `json:"officerName"`
}

type assignResult struct {
	GrievanceID string               `json:"grievanceId"`
	OfficerName string               `json:"officerName"`
	Board       *grievance.BoardView `json:"board,omitempty"`
}

// Assign hands a pending grievance to an officer. The cached board changes
// only after the API accepts the assignment.
func (s *Server) Assign(w http.ResponseWriter, r *http.Request) api.Response {
	var in assignRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return invalid("Invalid request.", nil)
	}
	in.GrievanceID = strings.TrimSpace(in.GrievanceID)
	in.OfficerName = strings.TrimSpace(in.OfficerName)
	if in.GrievanceID == "" {
		return invalid("Missing grievance id.", nil)
	}
	if in.OfficerName == "" {
		return invalid("Please select an officer to assign.", nil)
	}

	sess := currentSession(r)
	if err := s.upstream.Assign(r.Context(), sess.Credentials, in.GrievanceID, in.OfficerName); err != nil {
		return upstreamFailure("assign", err, "Assignment failed", "Server error while assigning officer")
	}

	res := assignResult{GrievanceID: in.GrievanceID, OfficerName: in.OfficerName}
	if board, ok := s.boards.Get(sess.ID); ok {
		board.Assign(in.GrievanceID, in.OfficerName)
		view := board.View()
		res.Board = &view
	}
	s.logger.Info("grievance assigned", "grievance", in.GrievanceID, "officer", in.OfficerName)
	return api.Response{Message: "Officer assigned successfully.", Data: res}
}

type analyticsView struct {
	grievance.Analytics
	Nav *Nav `json:"nav,omitempty"`
}

func (s *Server) AdminAnalytics(w http.ResponseWriter, r *http.Request) api.Response {
	sess := currentSession(r)
	ctx := r.Context()

	var (
		g     errgroup.Group
		stats grievance.DashboardStats
		perf  []grievance.OfficerPerformance
		ext   grievance.ExtendedAnalytics
		errs  [3]error
	)
	g.Go(func() error {
		stats, errs[0] = s.upstream.DashboardStats(ctx, sess.Credentials)
		return nil
	})
	g.Go(func() error {
		perf, errs[1] = s.upstream.OfficerPerformance(ctx, sess.Credentials)
		return nil
	})
	g.Go(func() error {
		ext, errs[2] = s.upstream.ExtendedAnalytics(ctx, sess.Credentials)
		return nil
	})
	g.Wait()

	rejected := [...]string{
		"Failed to fetch dashboard stats",
		"Failed to fetch officer performance",
		"Failed to fetch extended analytics",
	}
	for i, err := range errs {
		if err != nil {
			return upstreamFailure("admin analytics", err, rejected[i], "Server error. Try again later.")
		}
	}

	return api.Response{Data: analyticsView{
		Analytics: grievance.MergeAnalytics(stats, perf, ext),
		Nav:       NavFor(sess.Role(), "/admin/analytics"),
	}}
}
