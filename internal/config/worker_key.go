package config

type WorkerKeyStruct struct {
	PersistResponsesQueue string
	PersistScoresQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResponsesQueue: "persist_responses_queue",
	PersistScoresQueue:    "persist_scores_queue",
}
