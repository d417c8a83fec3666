package service

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
)

// Scheduler переводит турниры по расписанию: стартует матчи, чьё время пришло,
// и отменяет недобравшие игроков турниры после дедлайна регистрации.
type Scheduler struct {
	tournamentRepo    repository.TournamentRepository
	tournamentService *TournamentService
	sched             gocron.Scheduler
}

// NewScheduler создает новый планировщик турниров
func NewScheduler(tournamentRepo repository.TournamentRepository, tournamentService *TournamentService) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		tournamentRepo:    tournamentRepo,
		tournamentService: tournamentService,
		sched:             sched,
	}, nil
}

// Start регистрирует задачи и запускает планировщик
func (s *Scheduler) Start() error {
	if _, err := s.sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.startDueTournaments),
	); err != nil {
		return err
	}

	if _, err := s.sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.cancelUnderfilledTournaments),
	); err != nil {
		return err
	}

	s.sched.Start()
	log.Printf("[Scheduler] Планировщик турниров запущен")
	return nil
}

// Stop останавливает планировщик, дождавшись текущих задач
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

// startDueTournaments переводит в ongoing турниры, чьё match_time наступило
func (s *Scheduler) startDueTournaments() {
	tournaments, err := s.tournamentRepo.DueForStart(time.Now())
	if err != nil {
		log.Printf("[Scheduler] Ошибка выборки турниров к старту: %v", err)
		return
	}

	for i := range tournaments {
		t := &tournaments[i]
		if t.CurrentPlayers < t.MinPlayers {
			// Недобор к началу матча - отменяем с возвратом
			if _, err := s.tournamentService.UpdateStatus(t.ID, entity.TournamentStatusCancelled); err != nil {
				log.Printf("[Scheduler] Ошибка отмены недобранного турнира ID=%d: %v", t.ID, err)
			} else {
				log.Printf("[Scheduler] Турнир ID=%d отменён: %d/%d игроков к началу матча",
					t.ID, t.CurrentPlayers, t.MinPlayers)
			}
			continue
		}

		if _, err := s.tournamentService.UpdateStatus(t.ID, entity.TournamentStatusOngoing); err != nil {
			log.Printf("[Scheduler] Ошибка старта турнира ID=%d: %v", t.ID, err)
		} else {
			log.Printf("[Scheduler] Турнир ID=%d стартовал", t.ID)
		}
	}
}

// cancelUnderfilledTournaments отменяет турниры с истёкшим дедлайном регистрации
// и числом игроков меньше минимального
func (s *Scheduler) cancelUnderfilledTournaments() {
	tournaments, err := s.tournamentRepo.PastDeadlineUnderfilled(time.Now())
	if err != nil {
		log.Printf("[Scheduler] Ошибка выборки недобранных турниров: %v", err)
		return
	}

	for i := range tournaments {
		t := &tournaments[i]
		if _, err := s.tournamentService.UpdateStatus(t.ID, entity.TournamentStatusCancelled); err != nil {
			log.Printf("[Scheduler] Ошибка отмены турнира ID=%d: %v", t.ID, err)
		} else {
			log.Printf("[Scheduler] Турнир ID=%d отменён: %d/%d игроков после дедлайна",
				t.ID, t.CurrentPlayers, t.MinPlayers)
		}
	}
}
