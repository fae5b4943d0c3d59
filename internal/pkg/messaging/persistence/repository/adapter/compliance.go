package adapter

import repository "marketchat/internal/pkg/messaging/persistence/repository/port"

// Ensure interface compliance at compile time
var (
	_ repository.MessagingRepository = (*PgMessagingRepository)(nil)
	_ repository.UserDirectory       = (*PgUserDirectory)(nil)
	_ repository.MessagingRepository = (*MemoryRepository)(nil)
	_ repository.UserDirectory       = (*MemoryRepository)(nil)
)
