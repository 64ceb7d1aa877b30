package retry

import (
	"context"
	"time"
)

// Action определяет реакцию на HTTP-статус внешнего вызова
type Action int

const (
	// ActionNone — ответ успешный, повтор не нужен
	ActionNone Action = iota
	// ActionBackoff — перегрузка (429), повторить после экспоненциальной паузы
	ActionBackoff
	// ActionRefreshAuth — токен отклонён (401), обновить токен и повторить один раз
	ActionRefreshAuth
	// ActionFail — терминальная ошибка, повторы бесполезны
	ActionFail
)

// Policy — единая политика повторов для всех внешних вызовов движка.
// Один объект переиспользуется всеми клиентами вместо ad hoc пауз по месту вызова.
type Policy struct {
	MaxAttempts int           // максимум попыток, включая первую
	BaseDelay   time.Duration // пауза перед вторым вызовом
	MaxDelay    time.Duration // потолок экспоненциального роста
}

// Default возвращает политику по умолчанию для батч-движка
func Default() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// ClassifyStatus сопоставляет класс HTTP-статуса и требуемое действие
func (p Policy) ClassifyStatus(code int) Action {
	switch {
	case code >= 200 && code < 300:
		return ActionNone
	case code == 401:
		return ActionRefreshAuth
	case code == 429:
		return ActionBackoff
	default:
		return ActionFail
	}
}

// Delay возвращает паузу перед попыткой attempt (нумерация с 1)
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay << (attempt - 1)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// Wait блокируется на паузу перед попыткой attempt, уважая отмену контекста
func (p Policy) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.Delay(attempt))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
