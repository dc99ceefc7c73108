package crypto

// KeyChainService отвечает за всю клиентскую криптографию в схеме Zero-Knowledge.
// Он не знает ничего о сети, базе данных или пользователях.
// Его единственная задача: выводить ключи из секретов и защищать их.
//
// Схема вывода ключей:
//
//	loginSalt, dataSalt = GenerateSalt(), GenerateSalt()          (шаг 1)
//	LAK = DeriveAuthToken(password, loginSalt, iters)             (шаг 2)
//	DEK = DeriveDataKey(password, dataSalt, iters, false)         (шаг 3)
//	REK = DeriveRecoveryKey(recoverySecret, dataSalt, iters)      (шаг 4)
//
// Обе соли не являются секретом и хранятся на сервере открыто.
// Разные соли гарантируют, что LAK и DEK не связаны между собой:
// знание токена аутентификации ничего не говорит о ключе данных.
type KeyChainService interface {
	// GenerateSalt генерирует случайную соль (16 байт / 128 бит).
	// Соль не секрет, она хранится на сервере открыто.
	// Нужна для того, чтобы одинаковые пароли давали разные ключи.
	// Шаг 1.
	GenerateSalt() ([]byte, error)

	// GenerateRecoverySecret генерирует случайный секрет восстановления
	// (256 бит) и возвращает его в виде, пригодном для записи на бумагу:
	// группы base32 по четыре символа, разделенные дефисами.
	// Секрет показывается пользователю один раз и нигде не сохраняется.
	GenerateRecoverySecret() (string, error)

	// DeriveAuthToken выводит токен аутентификации из секрета и соли
	// через PBKDF2-HMAC-SHA256. Результат: 64 hex-символа (32 байта).
	// Токен предъявляется серверу вместо пароля. Сервер хранит только
	// его хеш, поэтому не может восстановить ни пароль, ни ключ данных.
	// Шаг 2. Для секрета восстановления тот же вызов дает верификатор.
	DeriveAuthToken(secret string, salt []byte, iterations int) (string, error)

	// DeriveDataKey derives a 256-bit AES key from the secret and salt
	// via PBKDF2-HMAC-SHA256 and wraps it into a [DataKey] capability.
	// The raw bytes can be read back through Export only when exportable
	// is true; that mode exists solely for the recovery wrap step, where
	// the data key itself is the plaintext being encrypted.
	// Derivation is pure computation: it succeeds for any well-formed
	// inputs and never reveals whether a password is correct.
	DeriveDataKey(secret string, salt []byte, iterations int, exportable bool) (*DataKey, error)

	// DeriveRecoveryKey выводит ключ восстановления из секрета
	// восстановления и dataSalt. Вывод идентичен DeriveDataKey; ключ
	// используется только чтобы завернуть и развернуть DEK, поэтому
	// всегда неэкспортируемый. Шаг 4.
	DeriveRecoveryKey(secret string, salt []byte, iterations int) (*DataKey, error)
}
