package domain

var Tables = []interface{}{
	// System
	&SysAdmin{},
	&AdminToken{},
	&SysOprLog{},
	// Catalog
	&Category{},
	&Product{},
}
