package model

import "errors"

var (
	// ErrDataUnavailable indica que a fonte não pôde ser baixada ou lida. É fatal.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrSchemaMismatch indica que colunas obrigatórias não existem no CSV.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrMalformedRecord marca uma linha com data ou métrica ilegível. A linha é descartada.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInsufficientData não é fatal: quem consome deve pular a saída afetada.
	ErrInsufficientData = errors.New("insufficient data")
)
