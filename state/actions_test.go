package state

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cybertourney/tournament-client/models"
)

func respondJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func authMux(t *testing.T, user models.User) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("password") != "secret" {
			respondJSON(t, w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		respondJSON(t, w, http.StatusOK, models.TokenResponse{AccessToken: "tok-login", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-login" {
			respondJSON(t, w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		respondJSON(t, w, http.StatusOK, user)
	})
	return mux
}

func TestLoginSuccessEstablishesSession(t *testing.T) {
	profile := models.User{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true}
	s, api, sessions := newTestStore(t, authMux(t, profile))

	if !s.Login(context.Background(), "alice", "secret") {
		t.Fatalf("Login = false; store error: %q", s.Snapshot().Error)
	}

	snapshot := s.Snapshot()
	if snapshot.User == nil || snapshot.User.ID != 1 || snapshot.User.Email != "alice@example.com" {
		t.Errorf("User = %+v", snapshot.User)
	}
	if snapshot.Error != "" {
		t.Errorf("Error = %q; want empty", snapshot.Error)
	}
	if snapshot.IsLoading {
		t.Error("IsLoading = true after Login returned")
	}
	if !api.IsAuthenticated() {
		t.Error("gateway not authenticated after Login")
	}

	// Сессия долговечна: токен и авторитетный профиль сохранены.
	if token, ok := sessions.LoadToken(); !ok || token != "tok-login" {
		t.Errorf("stored token = %q, %v", token, ok)
	}
	if stored, ok := sessions.LoadUser(); !ok || stored.ID != 1 {
		t.Errorf("stored user = %+v, %v", stored, ok)
	}
}

func TestLoginFailureRecordsServerDetail(t *testing.T) {
	s, api, _ := newTestStore(t, authMux(t, models.User{}))

	var sawLoading atomic.Bool
	s.Subscribe(func(snapshot State) {
		if snapshot.IsLoading {
			sawLoading.Store(true)
		}
	})

	if s.Login(context.Background(), "alice", "wrong") {
		t.Fatal("Login = true for bad credentials")
	}

	snapshot := s.Snapshot()
	if snapshot.Error != "Incorrect username or password" {
		t.Errorf("Error = %q", snapshot.Error)
	}
	if snapshot.User != nil {
		t.Errorf("User = %+v; want unset", snapshot.User)
	}
	if snapshot.IsLoading {
		t.Error("IsLoading = true after failed Login")
	}
	if !sawLoading.Load() {
		t.Error("loading was never observed during the action")
	}
	if api.IsAuthenticated() {
		t.Error("gateway authenticated after failed Login")
	}
}

// Профиль с сервера недоступен: сессия уже зафиксирована с временной
// записью пользователя (только имя, id 0), но состояние пользователя
// хранилища остаётся пустым.
func TestLoginPlaceholderSessionOnProfileFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, models.TokenResponse{AccessToken: "tok-login", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusInternalServerError, map[string]string{"detail": "profile unavailable"})
	})

	s, api, _ := newTestStore(t, mux)

	if s.Login(context.Background(), "alice", "secret") {
		t.Fatal("Login = true despite profile fetch failure")
	}

	if got := s.Snapshot().Error; got != "profile unavailable" {
		t.Errorf("Error = %q", got)
	}
	if s.Snapshot().User != nil {
		t.Error("store user set despite failed profile fetch")
	}

	cached := api.CurrentUser()
	if cached == nil || cached.Username != "alice" || cached.ID != 0 {
		t.Errorf("gateway placeholder user = %+v", cached)
	}
}

func TestRegisterDelegatesToLogin(t *testing.T) {
	profile := models.User{ID: 2, Username: "bob", Email: "bob@example.com", IsActive: true}
	mux := authMux(t, profile)
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		var input models.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatal(err)
		}
		respondJSON(t, w, http.StatusOK, models.User{ID: 2, Username: input.Username, Email: input.Email, IsActive: true})
	})

	s, _, _ := newTestStore(t, mux)

	ok := s.Register(context.Background(), models.RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret",
	})
	if !ok {
		t.Fatalf("Register = false; store error: %q", s.Snapshot().Error)
	}

	snapshot := s.Snapshot()
	if snapshot.User == nil || snapshot.User.Username != "bob" {
		t.Errorf("User = %+v", snapshot.User)
	}
	if snapshot.IsLoading {
		t.Error("IsLoading = true after Register")
	}
}

func TestRegisterReportsLoginFailureMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, models.User{ID: 3, Username: "carol", IsActive: true})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
	})

	s, _, _ := newTestStore(t, mux)

	if s.Register(context.Background(), models.RegisterInput{Username: "carol", Password: "pw"}) {
		t.Fatal("Register = true despite login failure")
	}
	// Ошибка отражает именно неудавшийся вход, не регистрацию.
	if got := s.Snapshot().Error; got != "Incorrect username or password" {
		t.Errorf("Error = %q", got)
	}
}

func TestRegisterFailureSkipsLogin(t *testing.T) {
	var loginCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusBadRequest, map[string]string{"detail": "Username already registered"})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		loginCalls.Add(1)
		respondJSON(t, w, http.StatusOK, models.TokenResponse{AccessToken: "tok"})
	})

	s, _, _ := newTestStore(t, mux)

	if s.Register(context.Background(), models.RegisterInput{Username: "dave", Password: "pw"}) {
		t.Fatal("Register = true despite registration failure")
	}
	if got := s.Snapshot().Error; got != "Username already registered" {
		t.Errorf("Error = %q", got)
	}
	if loginCalls.Load() != 0 {
		t.Error("login attempted after failed registration")
	}
}

func TestLogoutResetsEverything(t *testing.T) {
	s, api, sessions := newTestStore(t, http.NewServeMux())

	if err := api.SetAuth("tok", &models.User{ID: 1, Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	s.setUser(&models.User{ID: 1, Username: "alice"})
	s.setTournaments([]models.Tournament{{ID: 1}})
	s.setTeams([]models.Team{{ID: 1}})
	s.setMatches([]models.Match{{ID: 1}})
	s.setError("stale message")

	s.Logout()

	snapshot := s.Snapshot()
	if snapshot.User != nil {
		t.Error("User still set after Logout")
	}
	if len(snapshot.Tournaments) != 0 || len(snapshot.Teams) != 0 || len(snapshot.Matches) != 0 {
		t.Errorf("collections not reset: %+v", snapshot)
	}
	// Logout не трогает error и loading.
	if snapshot.Error != "stale message" {
		t.Errorf("Error = %q; want untouched", snapshot.Error)
	}
	if api.IsAuthenticated() {
		t.Error("gateway still authenticated")
	}
	if _, ok := sessions.LoadToken(); ok {
		t.Error("token still stored after Logout")
	}
	if _, ok := sessions.LoadUser(); ok {
		t.Error("user still stored after Logout")
	}
}

func TestLoadTournamentsReplacesCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tournaments", func(w http.ResponseWriter, r *http.Request) {
		if game := r.URL.Query().Get("game"); game != "chess" {
			t.Errorf("game = %q", game)
		}
		respondJSON(t, w, http.StatusOK, []models.Tournament{
			{ID: 10, Name: "Spring Cup", Game: "chess", Status: models.TournamentUpcoming},
			{ID: 11, Name: "Summer Open", Game: "chess", Status: models.TournamentOngoing},
		})
	})

	s, _, _ := newTestStore(t, mux)
	s.setTournaments([]models.Tournament{{ID: 1, Name: "Stale"}})

	s.LoadTournaments(context.Background(), "chess")

	snapshot := s.Snapshot()
	if len(snapshot.Tournaments) != 2 || snapshot.Tournaments[0].ID != 10 {
		t.Errorf("Tournaments = %+v", snapshot.Tournaments)
	}
	if snapshot.Error != "" {
		t.Errorf("Error = %q", snapshot.Error)
	}
}

func TestLoadTournamentsFailureKeepsPreviousCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tournaments", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusServiceUnavailable, map[string]string{"detail": "maintenance"})
	})

	s, _, _ := newTestStore(t, mux)
	s.setTournaments([]models.Tournament{{ID: 1, Name: "Kept"}})

	s.LoadTournaments(context.Background(), "")

	snapshot := s.Snapshot()
	if len(snapshot.Tournaments) != 1 || snapshot.Tournaments[0].Name != "Kept" {
		t.Errorf("previous collection lost: %+v", snapshot.Tournaments)
	}
	if snapshot.Error != "maintenance" {
		t.Errorf("Error = %q", snapshot.Error)
	}
}

func TestCreateTournamentAppendsServerEntity(t *testing.T) {
	created := models.Tournament{
		ID:          1,
		Name:        "Cup",
		Game:        "chess",
		MaxTeams:    8,
		Status:      models.TournamentUpcoming,
		OrganizerID: 5,
		CreatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tournaments/", func(w http.ResponseWriter, r *http.Request) {
		var input models.TournamentCreate
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatal(err)
		}
		if input.Name != "Cup" || input.MaxTeams != 8 {
			t.Errorf("input = %+v", input)
		}
		respondJSON(t, w, http.StatusOK, created)
	})

	s, _, _ := newTestStore(t, mux)

	got, err := s.CreateTournament(context.Background(), models.TournamentCreate{
		Name:     "Cup",
		Game:     "chess",
		MaxTeams: 8,
	})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}

	snapshot := s.Snapshot()
	if len(snapshot.Tournaments) != 1 {
		t.Fatalf("len(Tournaments) = %d; want 1", len(snapshot.Tournaments))
	}
	if snapshot.Tournaments[0] != *got {
		t.Errorf("cached %+v != returned %+v", snapshot.Tournaments[0], *got)
	}
	if got.ID != 1 || got.Status != models.TournamentUpcoming || got.OrganizerID != 5 {
		t.Errorf("returned entity = %+v", got)
	}
}

func TestCreateTournamentFailureRecordsAndReturnsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tournaments/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
	})

	s, _, _ := newTestStore(t, mux)

	if _, err := s.CreateTournament(context.Background(), models.TournamentCreate{Name: "Cup"}); err == nil {
		t.Fatal("CreateTournament returned nil error")
	}
	snapshot := s.Snapshot()
	if snapshot.Error != "Not authenticated" {
		t.Errorf("Error = %q", snapshot.Error)
	}
	if len(snapshot.Tournaments) != 0 {
		t.Errorf("collection grew on failure: %+v", snapshot.Tournaments)
	}
}

func TestDeleteTournamentRemovesFromCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /tournaments/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s, _, _ := newTestStore(t, mux)
	s.setTournaments([]models.Tournament{{ID: 1}, {ID: 2}, {ID: 3}})

	if err := s.DeleteTournament(context.Background(), 2); err != nil {
		t.Fatalf("DeleteTournament: %v", err)
	}

	for _, tr := range s.Snapshot().Tournaments {
		if tr.ID == 2 {
			t.Error("tournament 2 still cached after delete")
		}
	}
}

func TestUpdateMatchScoreUpdatesCache(t *testing.T) {
	winner := 20
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /matches/5/score", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, models.Match{
			ID: 5, TournamentID: 1, Round: 2, Team1ID: 20, Team2ID: 21,
			Score1: 2, Score2: 0, WinnerID: &winner, Status: models.MatchCompleted,
		})
	})

	s, _, _ := newTestStore(t, mux)
	s.setMatches([]models.Match{{ID: 5, TournamentID: 1, Round: 2, Team1ID: 20, Team2ID: 21, Status: models.MatchScheduled}})

	match, err := s.UpdateMatchScore(context.Background(), 5, 2, 0)
	if err != nil {
		t.Fatalf("UpdateMatchScore: %v", err)
	}
	if match.Status != models.MatchCompleted {
		t.Errorf("returned match = %+v", match)
	}

	cached := s.Snapshot().Matches
	if len(cached) != 1 || cached[0].Score1 != 2 || cached[0].WinnerID == nil || *cached[0].WinnerID != 20 {
		t.Errorf("cached match = %+v", cached)
	}
}

func TestRegisterTeamForTournamentDoesNotTouchCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /participations/", func(w http.ResponseWriter, r *http.Request) {
		var input models.ParticipationCreate
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatal(err)
		}
		respondJSON(t, w, http.StatusOK, models.Participation{
			ID: 9, TournamentID: input.TournamentID, TeamID: input.TeamID,
			RegisteredAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		})
	})

	s, _, _ := newTestStore(t, mux)
	s.setTournaments([]models.Tournament{{ID: 4}})
	s.setTeams([]models.Team{{ID: 7}})

	participation, err := s.RegisterTeamForTournament(context.Background(), 4, 7)
	if err != nil {
		t.Fatalf("RegisterTeamForTournament: %v", err)
	}
	if participation.ID != 9 || participation.TournamentID != 4 || participation.TeamID != 7 {
		t.Errorf("participation = %+v", participation)
	}

	snapshot := s.Snapshot()
	if len(snapshot.Tournaments) != 1 || len(snapshot.Teams) != 1 {
		t.Errorf("collections changed: %+v", snapshot)
	}
}

func TestActionClearsPriorError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /teams", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, []models.Team{{ID: 1, Name: "Rockets"}})
	})

	s, _, _ := newTestStore(t, mux)
	s.setError("old failure")

	s.LoadTeams(context.Background())

	snapshot := s.Snapshot()
	if snapshot.Error != "" {
		t.Errorf("Error = %q; want cleared", snapshot.Error)
	}
	if len(snapshot.Teams) != 1 || snapshot.Teams[0].Name != "Rockets" {
		t.Errorf("Teams = %+v", snapshot.Teams)
	}
}

func TestRefreshAllLoadsTournamentsAndTeams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tournaments", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, []models.Tournament{{ID: 1, Name: "Cup"}})
	})
	mux.HandleFunc("GET /teams", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, []models.Team{{ID: 2, Name: "Rockets"}})
	})

	s, _, _ := newTestStore(t, mux)

	s.RefreshAll(context.Background(), "")

	snapshot := s.Snapshot()
	if len(snapshot.Tournaments) != 1 || len(snapshot.Teams) != 1 {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if snapshot.IsLoading || snapshot.Error != "" {
		t.Errorf("loading/error after RefreshAll: %v %q", snapshot.IsLoading, snapshot.Error)
	}
}

func TestRefreshAllFailureRecordsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tournaments", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, []models.Tournament{{ID: 1}})
	})
	mux.HandleFunc("GET /teams", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusBadGateway, map[string]string{"detail": "teams unavailable"})
	})

	s, _, _ := newTestStore(t, mux)
	s.setTeams([]models.Team{{ID: 9, Name: "Kept"}})

	s.RefreshAll(context.Background(), "")

	snapshot := s.Snapshot()
	if snapshot.Error != "teams unavailable" {
		t.Errorf("Error = %q", snapshot.Error)
	}
	// Частичный отказ не применяет ни одной коллекции.
	if len(snapshot.Teams) != 1 || snapshot.Teams[0].Name != "Kept" {
		t.Errorf("Teams = %+v", snapshot.Teams)
	}
}
