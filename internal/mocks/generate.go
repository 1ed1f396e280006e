package mocks

//go:generate mockery --name FactStore --srcpkg github.com/aevon-lab/completion-aggregator/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name AggregateStore --srcpkg github.com/aevon-lab/completion-aggregator/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name StalenessLedger --srcpkg github.com/aevon-lab/completion-aggregator/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name PairUpdater --srcpkg github.com/aevon-lab/completion-aggregator/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
//go:generate mockery --name NotificationSink --srcpkg github.com/aevon-lab/completion-aggregator/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
//go:generate mockery --name Emitter --srcpkg github.com/aevon-lab/completion-aggregator/internal/tracking --output ./tracking --outpkg trackingmocks --with-expecter
