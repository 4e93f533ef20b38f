package components

import (
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/infra/readstore"
	"checkout-engine/internal/infra/uow"
	"checkout-engine/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readstoreModule,
	repositoryModule,
)

var baseOption = fx.Provide(
	NewDBTX,
	uow.DefaultRetryPolicy,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderReadStore)),
		),
		fx.Annotate(
			readstore.NewIntentReadStore,
			fx.As(new(queries.IntentReadStore)),
		),
		fx.Annotate(
			readstore.NewReconciliationReadStore,
			fx.As(new(queries.ReconciliationReadStore)),
		),
	),
)

// Write-side repositories are created per transaction by the unit of work.
var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
