package tasks

// TaskSchedulerInterface is what the API uses to trigger ingestion passes.
//
//	scheduler := NewScheduler(pipeline, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestTask(pipeline, TriggerAPI))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
