package domain

// Role — роль аутентифицированного пользователя. Пара (userID, role)
// приходит от identity-сервиса и принимается ядром без перепроверки.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor идентифицирует инициатора операции.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin сообщает, обладает ли инициатор админскими правами.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccessOrder проверяет право чтения заказа: владелец или админ.
func (a Actor) CanAccessOrder(o *Order) bool {
	return a.IsAdmin() || o.UserID == a.UserID
}
