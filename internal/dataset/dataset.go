// Package dataset exposes the industrial telemetry CSV as a read-only
// tabular source for the dashboard endpoints. The file is loaded once at
// startup; all accessors work on the immutable snapshot.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Record mirrors one row of the Dataset_Talento file. Column names keep the
// original Spanish headers on the wire.
type Record struct {
	Timestamp            string  `json:"timestamp"`
	Turno                string  `json:"turno"`
	OperadorID           string  `json:"operador_id"`
	MaquinaID            string  `json:"maquina_id"`
	ProductoID           string  `json:"producto_id"`
	Temperatura          float64 `json:"temperatura"`
	Vibracion            float64 `json:"vibración"`
	Humedad              float64 `json:"humedad"`
	TiempoCiclo          float64 `json:"tiempo_ciclo"`
	FalloDetectado       bool    `json:"fallo_detectado"`
	TipoFallo            string  `json:"tipo_fallo"`
	CantidadProducida    int     `json:"cantidad_producida"`
	UnidadesDefectuosas  int     `json:"unidades_defectuosas"`
	EficienciaPorcentual float64 `json:"eficiencia_porcentual"`
	ConsumoEnergia       float64 `json:"consumo_energia"`
	ParadasProgramadas   int     `json:"paradas_programadas"`
	ParadasImprevistas   int     `json:"paradas_imprevistas"`
	Observaciones        string  `json:"observaciones"`
}

// EfficiencyStats aggregates the positive efficiency values of a slice of
// records.
type EfficiencyStats struct {
	Promedio       float64 `json:"promedio"`
	Maximo         float64 `json:"maximo"`
	Minimo         float64 `json:"minimo"`
	TotalRegistros int     `json:"total_registros"`
	TotalFallos    int     `json:"total_fallos"`
}

type Dataset struct {
	records []Record
}

// Load reads the CSV at path. A missing file yields an empty dataset, not an
// error, matching the original behavior of serving with no data.
func Load(path string, logger *zap.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Dataset file not found, starting empty", zap.String("path", path))
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("error opening dataset: %v", err)
	}
	defer f.Close()

	records, err := parse(f)
	if err != nil {
		return nil, err
	}

	logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("records", len(records)))
	return &Dataset{records: records}, nil
}

func parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading dataset header: %v", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading dataset row: %v", err)
		}

		records = append(records, Record{
			Timestamp:            field(row, "timestamp"),
			Turno:                field(row, "turno"),
			OperadorID:           field(row, "operador_id"),
			MaquinaID:            field(row, "maquina_id"),
			ProductoID:           field(row, "producto_id"),
			Temperatura:          parseFloat(field(row, "temperatura")),
			Vibracion:            parseFloat(field(row, "vibración")),
			Humedad:              parseFloat(field(row, "humedad")),
			TiempoCiclo:          parseFloat(field(row, "tiempo_ciclo")),
			FalloDetectado:       parseBool(field(row, "fallo_detectado")),
			TipoFallo:            field(row, "tipo_fallo"),
			CantidadProducida:    parseInt(field(row, "cantidad_producida")),
			UnidadesDefectuosas:  parseInt(field(row, "unidades_defectuosas")),
			EficienciaPorcentual: parseFloat(field(row, "eficiencia_porcentual")),
			ConsumoEnergia:       parseFloat(field(row, "consumo_energia")),
			ParadasProgramadas:   parseInt(field(row, "paradas_programadas")),
			ParadasImprevistas:   parseInt(field(row, "paradas_imprevistas")),
			Observaciones:        field(row, "observaciones"),
		})
	}

	return records, nil
}

// Unparseable numbers become 0, matching the original CSV cleaner.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func parseBool(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}

// All returns every record.
func (d *Dataset) All() []Record {
	return d.records
}

// ByMachine returns the records of one machine.
func (d *Dataset) ByMachine(machineID string) []Record {
	out := []Record{}
	for _, r := range d.records {
		if r.MaquinaID == machineID {
			out = append(out, r)
		}
	}
	return out
}

// ByOperator returns the records of one operator.
func (d *Dataset) ByOperator(operatorID string) []Record {
	out := []Record{}
	for _, r := range d.records {
		if r.OperadorID == operatorID {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns the records with a detected failure.
func (d *Dataset) Failures() []Record {
	out := []Record{}
	for _, r := range d.records {
		if r.FalloDetectado {
			out = append(out, r)
		}
	}
	return out
}

// EfficiencyStats aggregates efficiency over all records, or over one machine
// when machineID is non-empty. Returns nil when there is nothing to aggregate.
func (d *Dataset) EfficiencyStats(machineID string) *EfficiencyStats {
	records := d.records
	if machineID != "" {
		records = d.ByMachine(machineID)
	}
	if len(records) == 0 {
		return nil
	}

	stats := &EfficiencyStats{TotalRegistros: len(records)}
	var sum float64
	var count int
	for _, r := range records {
		if r.FalloDetectado {
			stats.TotalFallos++
		}
		eff := r.EficienciaPorcentual
		if eff <= 0 {
			continue
		}
		if count == 0 || eff > stats.Maximo {
			stats.Maximo = eff
		}
		if count == 0 || eff < stats.Minimo {
			stats.Minimo = eff
		}
		sum += eff
		count++
	}
	if count > 0 {
		stats.Promedio = sum / float64(count)
	}
	return stats
}

// Machines returns the unique machine ids in order of first appearance.
func (d *Dataset) Machines() []string {
	return d.unique(func(r Record) string { return r.MaquinaID })
}

// Operators returns the unique operator ids in order of first appearance.
func (d *Dataset) Operators() []string {
	return d.unique(func(r Record) string { return r.OperadorID })
}

func (d *Dataset) unique(key func(Record) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range d.records {
		k := key(r)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
