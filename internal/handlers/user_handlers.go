package handlers

import (
	"net/http"
)

// HandleGetUser looks up a user by numeric ID or username and returns the
// restricted directory projection
func (s *Server) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if key == "" {
			http.Error(w, "User key required", http.StatusBadRequest)
			return
		}

		user, err := s.Users.GetUserByKey(r.Context(), key)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, user.AsParticipant())
	}
}
