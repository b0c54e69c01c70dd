package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ems-desk/internal/attendance"
	"ems-desk/internal/chart"
	"ems-desk/internal/domain"
	"ems-desk/internal/table"
)

type DatasetResponse struct {
	Dataset domain.Dataset `json:"dataset"`
	Table   *table.Table   `json:"table,omitempty"`
}

func (h *Handler) uploadDataset(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	ds, t, err := h.datasets.Upload(c.Request.Context(), sessionFrom(c).Username, header.Filename, file)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, DatasetResponse{Dataset: *ds, Table: t})
}

func (h *Handler) listDatasets(c *gin.Context) {
	datasets, err := h.datasets.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, datasets)
}

func (h *Handler) getDataset(c *gin.Context) {
	id := c.Param("id")
	ds, err := h.datasets.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	t, err := h.datasets.Load(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, DatasetResponse{Dataset: *ds, Table: t})
}

func (h *Handler) deleteDataset(c *gin.Context) {
	id := c.Param("id")
	if err := h.datasets.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// loadTable fetches the dataset named by the :id parameter, writing the
// error response itself when that fails.
func (h *Handler) loadTable(c *gin.Context) (*table.Table, bool) {
	t, err := h.datasets.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return t, true
}

func (h *Handler) datasetInfo(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, table.Info(t))
}

func (h *Handler) describeDataset(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, table.Describe(t))
}

func (h *Handler) renameColumns(c *gin.Context) {
	var rename func(*table.Table) *table.Table
	switch c.Param("style") {
	case "capitalize":
		rename = table.CapitalizeColumns
	case "lowercase":
		rename = table.LowercaseColumns
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown column style"})
		return
	}
	save, ok := saveFlag(c)
	if !ok {
		return
	}
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	h.respondTable(c, rename(t), save, gin.H{})
}

func saveFlag(c *gin.Context) (bool, bool) {
	save, err := strconv.ParseBool(c.DefaultQuery("save", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag save"})
		return false, false
	}
	return save, true
}

// respondTable writes result, first replacing the stored dataset with it
// when save is set.
func (h *Handler) respondTable(c *gin.Context, result *table.Table, save bool, resp gin.H) {
	resp["table"] = result
	if save {
		ds, err := h.datasets.Replace(c.Request.Context(), c.Param("id"), result)
		if err != nil {
			h.writeError(c, err)
			return
		}
		resp["dataset"] = ds
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) cleanDataset(c *gin.Context) {
	op := c.Param("op")
	save, ok := saveFlag(c)
	if !ok {
		return
	}
	if save && op == "duplicates" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicates view cannot replace the dataset"})
		return
	}

	t, ok := h.loadTable(c)
	if !ok {
		return
	}

	resp := gin.H{}
	var result *table.Table
	switch op {
	case "remove-empty":
		result = table.RemoveEmpty(t)
	case "duplicates":
		result = table.FindDuplicates(t)
	case "drop-duplicates":
		result = table.DropDuplicates(t)
	case "numeric-columns":
		result = table.NumericColumns(t)
	case "coerce":
		var report []table.Coercion
		result, report = table.CoerceTypes(t)
		resp["coercions"] = report
	case "fill-mean":
		var filled []string
		result, filled = table.FillNumericNullsWithMean(t)
		if filled == nil {
			filled = []string{}
		}
		resp["filled"] = filled
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown cleaning operation"})
		return
	}
	h.respondTable(c, result, save, resp)
}

func (h *Handler) searchDataset(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	result, err := table.Search(t, c.Query("column"), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": result})
}

func (h *Handler) chartDataset(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	series, err := chart.Build(t, chart.Request{
		Kind: chart.Kind(c.Query("kind")),
		X:    c.Query("x"),
		Y:    c.Query("y"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (h *Handler) attendanceTotals(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	summary, err := attendance.Summary(t)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": summary})
}

func (h *Handler) attendanceCounts(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, attendance.PerDayCounts(t))
}

func (h *Handler) attendancePercentages(c *gin.Context) {
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	p, err := attendance.PerDayPercentage(t)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) attendanceByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("staff"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid staff id"})
		return
	}
	t, ok := h.loadTable(c)
	if !ok {
		return
	}
	rows, err := attendance.LookupByID(t, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": rows})
}
