package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VMAzure/azurenet-engine/internal/domain/models"
)

// ErrNotFound возвращается, когда запрошенная строка отсутствует
var ErrNotFound = errors.New("storage: row not found")

// ListingRepository определяет операции движка над реляционным хранилищем
type ListingRepository interface {
	// Захват батча
	ClaimCandidateIDs(ctx context.Context, limit int) ([]string, error)
	LockListing(ctx context.Context, id string) (*models.ListingRecord, error)

	// Чтение контекста записи
	GetDealerConfig(ctx context.Context, dealerID string) (*models.DealerConfig, error)
	GetVehicleView(ctx context.Context, vehicleID string) (*models.VehicleView, error)
	GetTechDetails(ctx context.Context, catalogCode string) (*models.TechDetails, error)
	GetModelMapping(ctx context.Context, catalogCode string) (makeID, modelID int, vehicleType string, err error)
	GetBodyTypeID(ctx context.Context, mnetTipo string) (int, error)
	GetFuelMapping(ctx context.Context, fuel string) (primaryType int, category string, err error)
	GetEquipmentIDs(ctx context.Context, vehicleID string) ([]int, error)
	GetVehicleMedia(ctx context.Context, vehicleID string) ([]models.VehicleMedia, error)

	// Фиксация исходов
	MarkPublished(ctx context.Context, id, remoteListingID string) error
	DeleteListing(ctx context.Context, id string) error
	MarkError(ctx context.Context, id, message string) error
	ResetForRepair(ctx context.Context, id, message string) error

	// Admin API
	GetListing(ctx context.Context, id string) (*models.ListingRecord, error)
	ListErrored(ctx context.Context, limit, offset int) ([]*models.ListingRecord, int, error)
	RequeueListing(ctx context.Context, id string, status models.Status) error

	// WLTP enrichment
	ClaimEnrichmentCandidates(ctx context.Context, limit int) ([]models.EnrichmentCandidate, error)
	GetLegacyEuro(ctx context.Context, catalogCode string, vcom bool) (string, error)
	SetEmissionDirective(ctx context.Context, vehicleID, directive string) error

	// Справочник моделей AS24
	UpsertReferenceModel(ctx context.Context, m models.ReferenceModel) (bool, error)
}

// ListingStoragePort добавляет к репозиторию управление транзакциями
type ListingStoragePort interface {
	ListingRepository

	BeginTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error

	Close() error
}

// contextKey тип для ключей контекста
type contextKey string

const txKey contextKey = "transaction"

// ListingStorage — реализация ListingStoragePort для PostgreSQL
type ListingStorage struct {
	pool *pgxpool.Pool
}

// NewListingStorage создает хранилище поверх строки подключения
func NewListingStorage(ctx context.Context, connectionString string) (*ListingStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &ListingStorage{pool: pool}, nil
}

// NewListingStorageWithPool создает хранилище поверх готового пула
func NewListingStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*ListingStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &ListingStorage{pool: pool}, nil
}

// Close закрывает соединение с БД
func (r *ListingStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *ListingStorage) getExecutor(ctx context.Context) executor {
	if tx := r.getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// getTx получает транзакцию из контекста
func (r *ListingStorage) getTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// BeginTx начинает новую транзакцию
func (r *ListingStorage) BeginTx(ctx context.Context) (context.Context, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey, tx), nil
}

// CommitTx фиксирует транзакцию
func (r *ListingStorage) CommitTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Commit(ctx)
}

// RollbackTx откатывает транзакцию
func (r *ListingStorage) RollbackTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Rollback(ctx)
}

func claimableStatusStrings() []string {
	statuses := models.ClaimableStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ClaimCandidateIDs отбирает id актуальных записей в порядке requested_at.
// Блокировок не берёт: каждая запись перезахватывается индивидуально
// в собственной транзакции через LockListing.
func (r *ListingStorage) ClaimCandidateIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT id
		FROM autoscout_listings
		WHERE status = ANY($1)
		ORDER BY requested_at
		LIMIT $2
	`, claimableStatusStrings(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select claim candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LockListing берёт строку под FOR UPDATE SKIP LOCKED внутри текущей транзакции.
// Возвращает nil без ошибки, если строка захвачена другим воркером,
// удалена или уже не в захватываемом статусе.
func (r *ListingStorage) LockListing(ctx context.Context, id string) (*models.ListingRecord, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT id, id_auto, dealer_id, listing_id, status, last_error, retry_count, requested_at, last_attempt_at
		FROM autoscout_listings
		WHERE id = $1 AND status = ANY($2)
		FOR UPDATE SKIP LOCKED
	`, id, claimableStatusStrings())

	var l models.ListingRecord
	err := row.Scan(&l.ID, &l.VehicleID, &l.DealerID, &l.RemoteListingID,
		&l.Status, &l.LastError, &l.RetryCount, &l.RequestedAt, &l.LastAttemptAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock listing %s: %w", id, err)
	}
	return &l, nil
}

// GetDealerConfig возвращает включённую конфигурацию дилера (nil, ErrNotFound если нет)
func (r *ListingStorage) GetDealerConfig(ctx context.Context, dealerID string) (*models.DealerConfig, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT dealer_id, customer_id, test_mode, enabled
		FROM autoscout_dealer_config
		WHERE dealer_id = $1 AND enabled = true
	`, dealerID)

	var c models.DealerConfig
	err := row.Scan(&c.DealerID, &c.SellID, &c.TestMode, &c.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dealer config: %w", err)
	}
	return &c, nil
}

// GetVehicleView собирает снимок автомобиля: техническая запись,
// коммерческий контекст и унифицированные детали Motornet
func (r *ListingStorage) GetVehicleView(ctx context.Context, vehicleID string) (*models.VehicleView, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT
			a.id,
			a.codice_motornet,
			a.anno_immatricolazione,
			a.mese_immatricolazione,
			a.km_certificati,
			COALESCE(a.colore, ''),
			a.data_ultimo_intervento,
			a.cronologia_tagliandi,
			u.prezzo_vendita,
			COALESCE(u.iva_esposta, false),
			u.vat_rate,
			COALESCE(u.visibile, false),
			u.descrizione,
			u.alias_allestimento,
			d.catalog,
			d.allestimento
		FROM azlease_usatoauto a
		JOIN azlease_usatoin u ON u.id = a.id_usatoin
		JOIN v_mnet_dettagli_unificati d ON d.codice_motornet_uni = a.codice_motornet
		WHERE a.id = $1
	`, vehicleID)

	var v models.VehicleView
	err := row.Scan(
		&v.VehicleID,
		&v.CatalogCode,
		&v.RegistrationYear,
		&v.RegistrationMonth,
		&v.Mileage,
		&v.Color,
		&v.LastServiceDate,
		&v.FullServiceHistory,
		&v.SalePrice,
		&v.VATExposed,
		&v.VATRate,
		&v.Visible,
		&v.Description,
		&v.TrimAlias,
		&v.Catalog,
		&v.TrimName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle view %s: %w", vehicleID, err)
	}
	return &v, nil
}

// GetTechDetails возвращает технические детали AUTO (обязательны для vehicleType C)
func (r *ListingStorage) GetTechDetails(ctx context.Context, catalogCode string) (*models.TechDetails, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT
			d.tipo, d.segmento, d.alimentazione, d.cambio,
			d.kw, d.cilindrata, d.cilindri, d.peso_vuoto, d.posti, d.porte,
			u.trazione, u.co2, u.consumo_medio, u.rapporti,
			u.lunghezza, u.larghezza, u.altezza
		FROM mnet_dettagli_usato d
		JOIN v_mnet_dettagli_unificati u ON u.codice_motornet_uni = d.codice_motornet_uni
		WHERE d.codice_motornet_uni = $1
	`, catalogCode)

	var t models.TechDetails
	err := row.Scan(
		&t.BodyKind, &t.Segment, &t.Fuel, &t.Gearbox,
		&t.PowerKW, &t.Displacement, &t.CylinderCount, &t.EmptyWeight, &t.SeatCount, &t.DoorCount,
		&t.Drivetrain, &t.CO2, &t.ConsumptionCombined, &t.GearCount,
		&t.Length, &t.Width, &t.Height,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tech details %s: %w", catalogCode, err)
	}
	return &t, nil
}

// GetModelMapping резолвит марку/модель/тип AS24 по коду Motornet
func (r *ListingStorage) GetModelMapping(ctx context.Context, catalogCode string) (int, int, string, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT as24_make_id, as24_model_id, as24_vehicle_type
		FROM autoscout_model_map_v2
		WHERE codice_motornet_uni = $1
	`, catalogCode)

	var makeID, modelID *int
	var vehicleType *string
	err := row.Scan(&makeID, &modelID, &vehicleType)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, "", ErrNotFound
	}
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to get model mapping %s: %w", catalogCode, err)
	}
	if makeID == nil || modelID == nil || vehicleType == nil {
		return 0, 0, "", ErrNotFound
	}
	return *makeID, *modelID, *vehicleType, nil
}

// GetBodyTypeID резолвит кузов AS24 по словарю tipo Motornet
func (r *ListingStorage) GetBodyTypeID(ctx context.Context, mnetTipo string) (int, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT as24_bodytype_id
		FROM autoscout_bodytype_map
		WHERE mnet_tipo = $1
	`, mnetTipo)

	var id int
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get bodytype mapping %s: %w", mnetTipo, err)
	}
	return id, nil
}

// GetFuelMapping резолвит тип и категорию топлива AS24 по alimentazione Motornet
func (r *ListingStorage) GetFuelMapping(ctx context.Context, fuel string) (int, string, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT as24_primary_fuel_type, as24_fuel_category
		FROM autoscout_fuel_map
		WHERE mnet_alimentazione = $1
	`, fuel)

	var primary *int
	var category *string
	err := row.Scan(&primary, &category)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to get fuel mapping %s: %w", fuel, err)
	}
	if primary == nil || category == nil {
		return 0, "", ErrNotFound
	}
	return *primary, *category, nil
}

// GetEquipmentIDs возвращает коды оснащения AS24, отмеченные у автомобиля
func (r *ListingStorage) GetEquipmentIDs(ctx context.Context, vehicleID string) ([]int, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT DISTINCT as24_equipment_id
		FROM autousato_equipaggiamenti
		WHERE id_auto = $1
		  AND presente = true
		  AND as24_equipment_id IS NOT NULL
	`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan equipment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetVehicleMedia возвращает витрину автомобиля в порядке приоритета
func (r *ListingStorage) GetVehicleMedia(ctx context.Context, vehicleID string) ([]models.VehicleMedia, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT
			v.media_id,
			v.media_type,
			v.priority,
			v.created_at,
			CASE v.media_type
				WHEN 'foto' THEN img.foto
				WHEN 'ai'   THEN leo.public_url
			END AS media_url
		FROM usato_vetrina v
		LEFT JOIN azlease_usatoimg img ON img.id = v.media_id
		LEFT JOIN usato_leonardo leo ON leo.id = v.media_id
		WHERE v.id_auto = $1
		  AND v.media_type IN ('foto', 'ai')
		  AND (
			(v.media_type = 'foto' AND img.foto IS NOT NULL)
			OR (v.media_type = 'ai' AND leo.public_url IS NOT NULL)
		  )
		ORDER BY v.priority ASC NULLS LAST, v.created_at ASC
	`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle media: %w", err)
	}
	defer rows.Close()

	var media []models.VehicleMedia
	for rows.Next() {
		var m models.VehicleMedia
		if err := rows.Scan(&m.MediaID, &m.MediaType, &m.Priority, &m.CreatedAt, &m.URL); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// MarkPublished фиксирует успешную публикацию
func (r *ListingStorage) MarkPublished(ctx context.Context, id, remoteListingID string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE autoscout_listings
		SET listing_id = $1,
		    status = $2,
		    last_attempt_at = now(),
		    retry_count = 0
		WHERE id = $3
	`, remoteListingID, string(models.StatusPublished), id)
	if err != nil {
		return fmt.Errorf("failed to mark listing published: %w", err)
	}
	return nil
}

// DeleteListing удаляет локальную запись намерения
func (r *ListingStorage) DeleteListing(ctx context.Context, id string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `
		DELETE FROM autoscout_listings WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

// MarkError фиксирует терминальную ошибку обработки записи
func (r *ListingStorage) MarkError(ctx context.Context, id, message string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE autoscout_listings
		SET status = $1,
		    last_error = $2,
		    retry_count = retry_count + 1,
		    last_attempt_at = now()
		WHERE id = $3
	`, string(models.StatusError), message, id)
	if err != nil {
		return fmt.Errorf("failed to mark listing error: %w", err)
	}
	return nil
}

// ResetForRepair выполняет авторемонт после дрейфа: листинг пересоздаётся с нуля
func (r *ListingStorage) ResetForRepair(ctx context.Context, id, message string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE autoscout_listings
		SET status = $1,
		    listing_id = NULL,
		    last_error = $2,
		    requested_at = now(),
		    retry_count = 0
		WHERE id = $3
	`, string(models.StatusPendingCreate), message, id)
	if err != nil {
		return fmt.Errorf("failed to reset listing for repair: %w", err)
	}
	return nil
}

// GetListing возвращает запись по id (для admin API)
func (r *ListingStorage) GetListing(ctx context.Context, id string) (*models.ListingRecord, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT id, id_auto, dealer_id, listing_id, status, last_error, retry_count, requested_at, last_attempt_at
		FROM autoscout_listings
		WHERE id = $1
	`, id)

	var l models.ListingRecord
	err := row.Scan(&l.ID, &l.VehicleID, &l.DealerID, &l.RemoteListingID,
		&l.Status, &l.LastError, &l.RetryCount, &l.RequestedAt, &l.LastAttemptAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", id, err)
	}
	return &l, nil
}

// ListErrored возвращает страницу записей в статусе ERROR и общее их количество
func (r *ListingStorage) ListErrored(ctx context.Context, limit, offset int) ([]*models.ListingRecord, int, error) {
	ex := r.getExecutor(ctx)

	var total int
	if err := ex.QueryRow(ctx, `
		SELECT count(*) FROM autoscout_listings WHERE status = $1
	`, string(models.StatusError)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count errored listings: %w", err)
	}

	rows, err := ex.Query(ctx, `
		SELECT id, id_auto, dealer_id, listing_id, status, last_error, retry_count, requested_at, last_attempt_at
		FROM autoscout_listings
		WHERE status = $1
		ORDER BY last_attempt_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`, string(models.StatusError), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list errored listings: %w", err)
	}
	defer rows.Close()

	var out []*models.ListingRecord
	for rows.Next() {
		var l models.ListingRecord
		if err := rows.Scan(&l.ID, &l.VehicleID, &l.DealerID, &l.RemoteListingID,
			&l.Status, &l.LastError, &l.RetryCount, &l.RequestedAt, &l.LastAttemptAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan errored listing: %w", err)
		}
		out = append(out, &l)
	}
	return out, total, rows.Err()
}

// RequeueListing возвращает запись в очередь обработки (внешний ремонт ERROR)
func (r *ListingStorage) RequeueListing(ctx context.Context, id string, status models.Status) error {
	tag, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE autoscout_listings
		SET status = $1,
		    last_error = NULL,
		    retry_count = 0,
		    requested_at = now()
		WHERE id = $2
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to requeue listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimEnrichmentCandidates захватывает батч автомобилей без директивы
// выбросов под FOR UPDATE SKIP LOCKED (вызывается внутри транзакции)
func (r *ListingStorage) ClaimEnrichmentCandidates(ctx context.Context, limit int) ([]models.EnrichmentCandidate, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT id, codice_motornet, anno_immatricolazione
		FROM azlease_usatoauto
		WHERE eu_emission_directive IS NULL
		  AND codice_motornet IS NOT NULL
		  AND anno_immatricolazione IS NOT NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim enrichment candidates: %w", err)
	}
	defer rows.Close()

	var out []models.EnrichmentCandidate
	for rows.Next() {
		var c models.EnrichmentCandidate
		if err := rows.Scan(&c.VehicleID, &c.CatalogCode, &c.RegistrationYear); err != nil {
			return nil, fmt.Errorf("failed to scan enrichment candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetLegacyEuro возвращает сырое legacy-значение euro из словаря Motornet:
// AUTO — mnet_dettagli_usato, VCOM — mnet_vcom_dettagli
func (r *ListingStorage) GetLegacyEuro(ctx context.Context, catalogCode string, vcom bool) (string, error) {
	table := "mnet_dettagli_usato"
	if vcom {
		table = "mnet_vcom_dettagli"
	}

	var euro *string
	err := r.getExecutor(ctx).QueryRow(ctx,
		`SELECT euro FROM `+table+` WHERE codice_motornet_uni = $1 LIMIT 1`,
		catalogCode,
	).Scan(&euro)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get legacy euro %s: %w", catalogCode, err)
	}
	if euro == nil {
		return "", ErrNotFound
	}
	return *euro, nil
}

// SetEmissionDirective фиксирует разрешённую директиву выбросов автомобиля
func (r *ListingStorage) SetEmissionDirective(ctx context.Context, vehicleID, directive string) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE azlease_usatoauto
		SET eu_emission_directive = $1
		WHERE id = $2
	`, directive, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to set emission directive: %w", err)
	}
	return nil
}

// UpsertReferenceModel добавляет модель в справочник AS24 (insert-or-skip).
// Возвращает true, если строка была вставлена.
func (r *ListingStorage) UpsertReferenceModel(ctx context.Context, m models.ReferenceModel) (bool, error) {
	tag, err := r.getExecutor(ctx).Exec(ctx, `
		INSERT INTO autoscout_reference_models (
			autoscout_make_id, autoscout_make_name,
			autoscout_model_id, autoscout_model_name, vehicle_type
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (autoscout_make_id, autoscout_model_id) DO NOTHING
	`, m.MakeID, m.MakeName, m.ModelID, m.ModelName, m.VehicleType)
	if err != nil {
		return false, fmt.Errorf("failed to upsert reference model: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ ListingStoragePort = (*ListingStorage)(nil)
