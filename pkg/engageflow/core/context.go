package core

type ctxKey string

const (
	CtxKeyProcessorId ctxKey = ctxKey("processorId")
	CtxKeyTrainerId   ctxKey = ctxKey("trainerId")
)
