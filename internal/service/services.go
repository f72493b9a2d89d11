package service

import (
	"github.com/dom/taskflow/internal/config"
	"github.com/dom/taskflow/internal/repository"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Auth *AuthService
	Task *TaskService
}

func NewServices(repos *repository.Repositories, tokens TokenManager, notifier TaskNotifier, cfg *config.Config, log logrus.FieldLogger) *Services {
	return &Services{
		Auth: NewAuthService(repos.User, tokens, cfg.BcryptCost, log),
		Task: NewTaskService(repos.Task, repos.User, notifier, log),
	}
}
