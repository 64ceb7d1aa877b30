package utils

import "errors"

// Ошибки валидации параметров подключения к хранилищу
var (
	ErrStorageEmptyHostName       = errors.New("storage: empty host name")
	ErrStorageInvalidPortNumber   = errors.New("storage: invalid port number")
	ErrStorageEmptyUsername       = errors.New("storage: empty username")
	ErrStorageEmptyPassword       = errors.New("storage: empty password")
	ErrStorageInvalidDatabaseName = errors.New("storage: invalid database name")
	ErrStorageInvalidSslMode      = errors.New("storage: invalid ssl mode")
	ErrStorageInvalidTimeout      = errors.New("storage: invalid timeout")
	ErrStorageInvalidPoolSize     = errors.New("storage: invalid pool size")
)
