package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cybertourney/tournament-client/models"
	"github.com/cybertourney/tournament-client/storage"
	"github.com/golang-jwt/jwt/v4"
)

const defaultTimeout = 10 * time.Second

// ListParams задаёт опциональную пагинацию и фильтр для list-операций.
// Нулевые значения не передаются в запросе.
type ListParams struct {
	Skip  int
	Limit int
	Game  string
}

// Gateway — единственная точка обращения к удалённому сервису. Владеет
// токеном и кэшированным текущим пользователем, прикрепляет
// Authorization: Bearer ко всем запросам, кроме Login и Register.
// Ошибки запросов не перехватываются и не повторяются — это зона
// ответственности вызывающего.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Register(ctx context.Context, input models.RegisterInput) (*models.User, error)
	GetCurrentUser(ctx context.Context) (*models.User, error)

	SetAuth(token string, user *models.User) error
	ClearAuth() error
	IsAuthenticated() bool
	CurrentUser() *models.User
	SessionExpiresAt() (time.Time, bool)

	ListTournaments(ctx context.Context, params ListParams) ([]models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	CreateTournament(ctx context.Context, input models.TournamentCreate) (*models.Tournament, error)
	UpdateTournament(ctx context.Context, id int, input models.TournamentUpdate) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error

	ListTeams(ctx context.Context, params ListParams) ([]models.Team, error)
	CreateTeam(ctx context.Context, input models.TeamCreate) (*models.Team, error)

	CreateMatch(ctx context.Context, input models.MatchCreate) (*models.Match, error)
	UpdateMatchScore(ctx context.Context, matchID, score1, score2 int) (*models.Match, error)

	RegisterTeamForTournament(ctx context.Context, tournamentID, teamID int) (*models.Participation, error)
	ListTournamentParticipants(ctx context.Context, tournamentID int) ([]models.Participation, error)
}

type apiClient struct {
	baseURL  string
	http     *http.Client
	sessions storage.SessionStore

	mu    sync.RWMutex
	token string
	user  *models.User
}

// New создаёт Gateway для сервиса по адресу baseURL. Сохранённая сессия
// (токен и пользователь) восстанавливается из sessions; повреждённые данные
// считаются отсутствующей сессией. При httpClient == nil используется
// клиент с таймаутом по умолчанию.
func New(baseURL string, sessions storage.SessionStore, httpClient *http.Client) Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &apiClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		sessions: sessions,
	}

	if token, ok := sessions.LoadToken(); ok {
		c.token = token
	}
	if user, ok := sessions.LoadUser(); ok {
		c.user = user
	}

	return c
}

// --- Аутентификация и сессия ---

func (c *apiClient) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tokenResp models.TokenResponse
	if err := c.send(req, &tokenResp); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

func (c *apiClient) Register(ctx context.Context, input models.RegisterInput) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodPost, "/register", nil, input, &user, false); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *apiClient) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &user, true); err != nil {
		return nil, err
	}

	// Профиль с сервера авторитетен: обновляем кэш и сохранённую сессию.
	c.mu.Lock()
	c.user = &user
	token := c.token
	c.mu.Unlock()

	if err := c.sessions.Save(token, &user); err != nil {
		return nil, fmt.Errorf("failed to persist current user: %w", err)
	}
	return &user, nil
}

func (c *apiClient) SetAuth(token string, user *models.User) error {
	c.mu.Lock()
	c.token = token
	c.user = user
	c.mu.Unlock()

	if err := c.sessions.Save(token, user); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (c *apiClient) ClearAuth() error {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()

	if err := c.sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear persisted session: %w", err)
	}
	return nil
}

func (c *apiClient) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *apiClient) CurrentUser() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	user := *c.user
	return &user
}

// SessionExpiresAt декодирует срок действия из claims сохранённого JWT без
// проверки подписи (ключ знает только сервер). Возвращает false, если токена
// нет, он не является JWT или не содержит exp.
func (c *apiClient) SessionExpiresAt() (time.Time, bool) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// --- Турниры ---

func (c *apiClient) ListTournaments(ctx context.Context, params ListParams) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	if err := c.doJSON(ctx, http.MethodGet, "/tournaments", params.values(), nil, &tournaments, true); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (c *apiClient) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/tournaments/%d", id), nil, nil, &tournament, true); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (c *apiClient) CreateTournament(ctx context.Context, input models.TournamentCreate) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := c.doJSON(ctx, http.MethodPost, "/tournaments/", nil, input, &tournament, true); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (c *apiClient) UpdateTournament(ctx context.Context, id int, input models.TournamentUpdate) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/tournaments/%d", id), nil, input, &tournament, true); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (c *apiClient) DeleteTournament(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/tournaments/%d", id), nil, nil, nil, true)
}

// --- Команды ---

func (c *apiClient) ListTeams(ctx context.Context, params ListParams) ([]models.Team, error) {
	var teams []models.Team
	if err := c.doJSON(ctx, http.MethodGet, "/teams", params.values(), nil, &teams, true); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *apiClient) CreateTeam(ctx context.Context, input models.TeamCreate) (*models.Team, error) {
	var team models.Team
	if err := c.doJSON(ctx, http.MethodPost, "/teams/", nil, input, &team, true); err != nil {
		return nil, err
	}
	return &team, nil
}

// --- Матчи ---

func (c *apiClient) CreateMatch(ctx context.Context, input models.MatchCreate) (*models.Match, error) {
	var match models.Match
	if err := c.doJSON(ctx, http.MethodPost, "/matches/", nil, input, &match, true); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *apiClient) UpdateMatchScore(ctx context.Context, matchID, score1, score2 int) (*models.Match, error) {
	query := url.Values{}
	query.Set("score1", strconv.Itoa(score1))
	query.Set("score2", strconv.Itoa(score2))

	var match models.Match
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/matches/%d/score", matchID), query, nil, &match, true); err != nil {
		return nil, err
	}
	return &match, nil
}

// --- Заявки ---

func (c *apiClient) RegisterTeamForTournament(ctx context.Context, tournamentID, teamID int) (*models.Participation, error) {
	input := models.ParticipationCreate{TournamentID: tournamentID, TeamID: teamID}

	var participation models.Participation
	if err := c.doJSON(ctx, http.MethodPost, "/participations/", nil, input, &participation, true); err != nil {
		return nil, err
	}
	return &participation, nil
}

func (c *apiClient) ListTournamentParticipants(ctx context.Context, tournamentID int) ([]models.Participation, error) {
	var participations []models.Participation
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/tournaments/%d/participants", tournamentID), nil, nil, &participations, true); err != nil {
		return nil, err
	}
	return participations, nil
}

// --- Внутреннее ---

func (p ListParams) values() url.Values {
	query := url.Values{}
	if p.Skip > 0 {
		query.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Game != "" {
		query.Set("game", p.Game)
	}
	return query
}

// doJSON выполняет один запрос к сервису: сериализует body в JSON (если он
// есть), прикрепляет bearer-токен при withAuth и декодирует успешный ответ
// в out (если out != nil).
func (c *apiClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}, withAuth bool) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if withAuth {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return c.send(req, out)
}

func (c *apiClient) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// responseError извлекает поле detail из тела неуспешного ответа.
// Тело, не являющееся JSON с строковым detail, даёт пустой Detail.
func responseError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	return &APIError{
		StatusCode: resp.StatusCode,
		Detail:     payload.Detail,
	}
}
