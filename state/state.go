// Package state содержит разделяемое состояние клиента: текущего
// пользователя, кэшированные коллекции сущностей и флаги loading/error.
// Состояние меняется только через мутации этого пакета; потребители
// читают его через снапшоты (Snapshot) или подписку (Subscribe).
package state

import (
	"log/slog"
	"sync"

	"github.com/cybertourney/tournament-client/client"
	"github.com/cybertourney/tournament-client/models"
)

// State — снимок видимого клиенту состояния приложения. Значение,
// возвращаемое Snapshot, является копией: его изменение не влияет на
// хранилище.
type State struct {
	User        *models.User
	Tournaments []models.Tournament
	Teams       []models.Team
	Matches     []models.Match
	IsLoading   bool
	Error       string
}

// Store — единственный на сессию контейнер состояния. Создаётся явно
// через NewStore и передаётся потребителям; пакет не содержит
// глобального экземпляра.
//
// Мутации сериализуются мьютексом, поэтому коллекции никогда не рвутся.
// Взаимного исключения между действиями нет: параллельные действия
// перезаписывают loading/error по принципу «последняя запись побеждает».
type Store struct {
	api    client.Gateway
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	subscribers []func(State)
}

// NewStore создаёт хранилище поверх api. Пользователь засевается из
// восстановленной сессии шлюза.
func NewStore(api client.Gateway, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		api:    api,
		logger: logger,
	}
	s.state.User = api.CurrentUser()
	return s
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe регистрирует fn, вызываемую со свежим снапшотом после каждой
// мутации. Вызов происходит вне блокировки хранилища.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// --- Мутации ---

func (s *Store) setUser(user *models.User) {
	s.apply(func(st *State) {
		st.User = user
	})
}

func (s *Store) setTournaments(tournaments []models.Tournament) {
	s.apply(func(st *State) {
		st.Tournaments = append([]models.Tournament(nil), tournaments...)
	})
}

// addTournament добавляет турнир в кэш. Если турнир с таким id уже
// кэширован, запись заменяется — коллекция не содержит дубликатов id.
func (s *Store) addTournament(tournament models.Tournament) {
	s.apply(func(st *State) {
		for i := range st.Tournaments {
			if st.Tournaments[i].ID == tournament.ID {
				st.Tournaments[i] = tournament
				return
			}
		}
		st.Tournaments = append(st.Tournaments, tournament)
	})
}

// updateTournament заменяет кэшированный турнир с совпадающим id.
// Отсутствующий id — no-op.
func (s *Store) updateTournament(tournament models.Tournament) {
	s.apply(func(st *State) {
		for i := range st.Tournaments {
			if st.Tournaments[i].ID == tournament.ID {
				st.Tournaments[i] = tournament
				return
			}
		}
	})
}

func (s *Store) removeTournament(id int) {
	s.apply(func(st *State) {
		filtered := st.Tournaments[:0]
		for _, t := range st.Tournaments {
			if t.ID != id {
				filtered = append(filtered, t)
			}
		}
		st.Tournaments = filtered
	})
}

func (s *Store) setTeams(teams []models.Team) {
	s.apply(func(st *State) {
		st.Teams = append([]models.Team(nil), teams...)
	})
}

func (s *Store) addTeam(team models.Team) {
	s.apply(func(st *State) {
		for i := range st.Teams {
			if st.Teams[i].ID == team.ID {
				st.Teams[i] = team
				return
			}
		}
		st.Teams = append(st.Teams, team)
	})
}

func (s *Store) setMatches(matches []models.Match) {
	s.apply(func(st *State) {
		st.Matches = append([]models.Match(nil), matches...)
	})
}

func (s *Store) addMatch(match models.Match) {
	s.apply(func(st *State) {
		for i := range st.Matches {
			if st.Matches[i].ID == match.ID {
				st.Matches[i] = match
				return
			}
		}
		st.Matches = append(st.Matches, match)
	})
}

// updateMatch заменяет кэшированный матч с совпадающим id. Отсутствующий
// id — no-op.
func (s *Store) updateMatch(match models.Match) {
	s.apply(func(st *State) {
		for i := range st.Matches {
			if st.Matches[i].ID == match.ID {
				st.Matches[i] = match
				return
			}
		}
	})
}

func (s *Store) setLoading(isLoading bool) {
	s.apply(func(st *State) {
		st.IsLoading = isLoading
	})
}

func (s *Store) setError(message string) {
	s.apply(func(st *State) {
		st.Error = message
	})
}

func (s *Store) clearError() {
	s.apply(func(st *State) {
		st.Error = ""
	})
}

// --- Внутреннее ---

// apply выполняет mutate под блокировкой и уведомляет подписчиков свежим
// снапшотом уже после её снятия.
func (s *Store) apply(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.snapshotLocked()
	subscribers := append(([]func(State))(nil), s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

func (s *Store) snapshotLocked() State {
	snapshot := State{
		Tournaments: append([]models.Tournament(nil), s.state.Tournaments...),
		Teams:       append([]models.Team(nil), s.state.Teams...),
		Matches:     append([]models.Match(nil), s.state.Matches...),
		IsLoading:   s.state.IsLoading,
		Error:       s.state.Error,
	}
	if s.state.User != nil {
		user := *s.state.User
		snapshot.User = &user
	}
	return snapshot
}
