package router

import (
	"net/http"

	"github.com/thehive/timebank/internal/account"
	"github.com/thehive/timebank/internal/auth"
	"github.com/thehive/timebank/internal/handlers"
	"github.com/thehive/timebank/internal/posts"
)

// New returns an http.Handler serving the /api/v1 surface. authed wraps a
// handler with the JWT middleware chain built in main.
func New(
	authHandler *auth.Handler,
	postHandler *posts.Handler,
	accountHandler *account.Handler,
	reviewHandler *handlers.ReviewHandler,
	authed func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.Handle("POST "+base+"/posts", authed(http.HandlerFunc(postHandler.CreatePost)))
	mux.HandleFunc("GET "+base+"/posts", postHandler.ListPosts)

	mux.Handle("GET "+base+"/account/me", authed(http.HandlerFunc(accountHandler.GetMe)))
	mux.Handle("GET "+base+"/account/ledger", authed(http.HandlerFunc(accountHandler.ListLedger)))
	mux.Handle("GET "+base+"/account/notifications", authed(http.HandlerFunc(accountHandler.ListNotifications)))
	mux.Handle("PATCH "+base+"/account/notifications/{id}/read", authed(http.HandlerFunc(accountHandler.MarkNotificationRead)))

	mux.HandleFunc("GET "+base+"/users/{id}/reviews", reviewHandler.ListUserReviews)

	return mux
}
