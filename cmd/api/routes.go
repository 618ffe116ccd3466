package main

import (
	"net/http"

	"github.com/thehive/timebank/internal/handlers"
)

// RegisterProposalRoutes adds the /api/v1 proposal lifecycle endpoints to the
// given mux. Middleware chain: JWTAuth -> handler; every endpoint needs an
// authenticated actor because every transition is attributed to one.
func RegisterProposalRoutes(
	mux *http.ServeMux,
	ph *handlers.ProposalHandler,
	rh *handlers.ReviewHandler,
	authed func(http.Handler) http.Handler,
) {
	base := "/api/v1"
	mux.Handle("POST "+base+"/proposals", authed(http.HandlerFunc(ph.CreateProposal)))
	mux.Handle("GET "+base+"/proposals", authed(http.HandlerFunc(ph.ListProposals)))
	mux.Handle("GET "+base+"/proposals/{id}", authed(http.HandlerFunc(ph.GetProposal)))
	mux.Handle("GET "+base+"/jobs", authed(http.HandlerFunc(ph.ListJobs)))
	mux.Handle("PATCH "+base+"/proposals/{id}/status", authed(http.HandlerFunc(ph.UpdateStatus)))
	mux.Handle("POST "+base+"/proposals/{id}/approve", authed(http.HandlerFunc(ph.Approve)))
	mux.Handle("POST "+base+"/proposals/{id}/decline-job", authed(http.HandlerFunc(ph.DeclineJob)))
	mux.Handle("POST "+base+"/proposals/{id}/reviews", authed(http.HandlerFunc(rh.CreateReview)))
}
