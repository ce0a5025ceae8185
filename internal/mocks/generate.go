package mocks

//go:generate mockery --name StagingStore --srcpkg github.com/aevon-lab/project-dimsync/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Reader --srcpkg github.com/aevon-lab/project-dimsync/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
