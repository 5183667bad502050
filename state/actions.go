package state

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cybertourney/tournament-client/client"
	"github.com/cybertourney/tournament-client/models"
)

// Каждое действие следует одному контуру: поднять loading, сбросить
// прошлую ошибку, выполнить операции шлюза, на успехе применить мутации,
// на отказе записать серверное detail (или запасное сообщение) в Error.
// Loading снимается безусловно при выходе.
//
// Действия чтения (Login, Register, LoadTournaments, LoadTeams,
// RefreshAll) поглощают ошибку после записи; мутирующие действия
// возвращают её вызывающему.

// Login обменивает учётные данные на токен и устанавливает сессию.
// Возвращает false при любом отказе; ошибка никогда не пробрасывается.
func (s *Store) Login(ctx context.Context, username, password string) bool {
	s.begin()
	defer s.finish()

	tokenResp, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.fail("login", err, "Login failed")
		return false
	}

	// Сессия фиксируется сразу с временной записью пользователя (только
	// имя, остальные поля по умолчанию); авторитетный профиль из
	// /users/me перезапишет её следующим шагом.
	placeholder := &models.User{Username: username, IsActive: true}
	if err := s.api.SetAuth(tokenResp.AccessToken, placeholder); err != nil {
		s.fail("login", err, "Login failed")
		return false
	}

	user, err := s.api.GetCurrentUser(ctx)
	if err != nil {
		s.fail("login", err, "Login failed")
		return false
	}

	s.setUser(user)
	s.logger.Debug("logged in", slog.String("username", user.Username))
	return true
}

// Register создаёт пользователя и сразу входит с теми же учётными
// данными. При отказе регистрации вход не выполняется; при отказе входа
// Error отражает именно его сообщение.
func (s *Store) Register(ctx context.Context, input models.RegisterInput) bool {
	s.begin()
	defer s.finish()

	if _, err := s.api.Register(ctx, input); err != nil {
		s.fail("register", err, "Registration failed")
		return false
	}

	return s.Login(ctx, input.Username, input.Password)
}

// Logout синхронно разрушает сессию и опустошает кэшированные коллекции.
// Поля loading и error не трогаются.
func (s *Store) Logout() {
	if err := s.api.ClearAuth(); err != nil {
		s.logger.Error("failed to clear persisted session", slog.Any("error", err))
	}
	s.setUser(nil)
	s.setTournaments(nil)
	s.setTeams(nil)
	s.setMatches(nil)
}

// LoadTournaments заменяет кэш турниров списком с сервера, опционально
// отфильтрованным по игре. При отказе прежний кэш сохраняется.
func (s *Store) LoadTournaments(ctx context.Context, game string) {
	s.begin()
	defer s.finish()

	tournaments, err := s.api.ListTournaments(ctx, client.ListParams{Game: game})
	if err != nil {
		s.fail("load tournaments", err, "Failed to load tournaments")
		return
	}
	s.setTournaments(tournaments)
}

// LoadTeams заменяет кэш команд списком с сервера.
func (s *Store) LoadTeams(ctx context.Context) {
	s.begin()
	defer s.finish()

	teams, err := s.api.ListTeams(ctx, client.ListParams{})
	if err != nil {
		s.fail("load teams", err, "Failed to load teams")
		return
	}
	s.setTeams(teams)
}

// RefreshAll загружает турниры и команды параллельно под одним циклом
// loading. Контур ошибок как у действий чтения.
func (s *Store) RefreshAll(ctx context.Context, game string) {
	s.begin()
	defer s.finish()

	var (
		tournaments []models.Tournament
		teams       []models.Team
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournaments, err = s.api.ListTournaments(gctx, client.ListParams{Game: game})
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.api.ListTeams(gctx, client.ListParams{})
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail("refresh", err, "Failed to refresh data")
		return
	}

	s.setTournaments(tournaments)
	s.setTeams(teams)
}

// CreateTournament создаёт турнир и добавляет его в кэш. Ошибка
// записывается в Error и возвращается вызывающему.
func (s *Store) CreateTournament(ctx context.Context, input models.TournamentCreate) (*models.Tournament, error) {
	s.begin()
	defer s.finish()

	tournament, err := s.api.CreateTournament(ctx, input)
	if err != nil {
		s.fail("create tournament", err, "Failed to create tournament")
		return nil, err
	}
	s.addTournament(*tournament)
	return tournament, nil
}

// UpdateTournament обновляет турнир на сервере и в кэше.
func (s *Store) UpdateTournament(ctx context.Context, id int, input models.TournamentUpdate) (*models.Tournament, error) {
	s.begin()
	defer s.finish()

	tournament, err := s.api.UpdateTournament(ctx, id, input)
	if err != nil {
		s.fail("update tournament", err, "Failed to update tournament")
		return nil, err
	}
	s.updateTournament(*tournament)
	return tournament, nil
}

// DeleteTournament удаляет турнир на сервере и из кэша.
func (s *Store) DeleteTournament(ctx context.Context, id int) error {
	s.begin()
	defer s.finish()

	if err := s.api.DeleteTournament(ctx, id); err != nil {
		s.fail("delete tournament", err, "Failed to delete tournament")
		return err
	}
	s.removeTournament(id)
	return nil
}

// CreateTeam создаёт команду и добавляет её в кэш.
func (s *Store) CreateTeam(ctx context.Context, input models.TeamCreate) (*models.Team, error) {
	s.begin()
	defer s.finish()

	team, err := s.api.CreateTeam(ctx, input)
	if err != nil {
		s.fail("create team", err, "Failed to create team")
		return nil, err
	}
	s.addTeam(*team)
	return team, nil
}

// CreateMatch создаёт матч и добавляет его в кэш.
func (s *Store) CreateMatch(ctx context.Context, input models.MatchCreate) (*models.Match, error) {
	s.begin()
	defer s.finish()

	match, err := s.api.CreateMatch(ctx, input)
	if err != nil {
		s.fail("create match", err, "Failed to create match")
		return nil, err
	}
	s.addMatch(*match)
	return match, nil
}

// UpdateMatchScore записывает счёт матча и обновляет кэш.
func (s *Store) UpdateMatchScore(ctx context.Context, matchID, score1, score2 int) (*models.Match, error) {
	s.begin()
	defer s.finish()

	match, err := s.api.UpdateMatchScore(ctx, matchID, score1, score2)
	if err != nil {
		s.fail("update match score", err, "Failed to update match score")
		return nil, err
	}
	s.updateMatch(*match)
	return match, nil
}

// RegisterTeamForTournament подаёт заявку команды на турнир. Кэш не
// затрагивается; запись заявки возвращается напрямую.
func (s *Store) RegisterTeamForTournament(ctx context.Context, tournamentID, teamID int) (*models.Participation, error) {
	s.begin()
	defer s.finish()

	participation, err := s.api.RegisterTeamForTournament(ctx, tournamentID, teamID)
	if err != nil {
		s.fail("register team", err, "Failed to register team")
		return nil, err
	}
	return participation, nil
}

// LoadTournamentParticipants возвращает заявки турнира без изменения
// кэша.
func (s *Store) LoadTournamentParticipants(ctx context.Context, tournamentID int) ([]models.Participation, error) {
	s.begin()
	defer s.finish()

	participations, err := s.api.ListTournamentParticipants(ctx, tournamentID)
	if err != nil {
		s.fail("load participants", err, "Failed to load participants")
		return nil, err
	}
	return participations, nil
}

// --- Внутреннее ---

func (s *Store) begin() {
	s.setLoading(true)
	s.clearError()
}

func (s *Store) finish() {
	s.setLoading(false)
}

func (s *Store) fail(op string, err error, fallback string) {
	s.setError(client.ErrorDetail(err, fallback))
	s.logger.Error(op+" failed", slog.Any("error", err))
}
