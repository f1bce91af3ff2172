// Package types define tipos de dominio compartidos entre paquetes.
package types

// OrganizationType es la relación de una organización con el MSP.
type OrganizationType string

const (
	// OrganizationMSP es el operador de la plataforma.
	OrganizationMSP OrganizationType = "msp"
	// OrganizationClient es un cliente gestionado directamente por el MSP.
	OrganizationClient OrganizationType = "client"
	// OrganizationESN es una empresa intermediaria que gestiona clientes para el MSP.
	OrganizationESN OrganizationType = "esn"
)

// IsValid retorna true si el tipo es conocido.
func (t OrganizationType) IsValid() bool {
	switch t {
	case OrganizationMSP, OrganizationClient, OrganizationESN:
		return true
	}
	return false
}

// TenantType tipo de portal que sirve un TenantDomain.
type TenantType string

const (
	TenantClient TenantType = "client"
	TenantESN    TenantType = "esn"
	TenantMSP    TenantType = "msp"
)

// IsValid retorna true si el tipo es conocido.
func (t TenantType) IsValid() bool {
	switch t {
	case TenantClient, TenantESN, TenantMSP:
		return true
	}
	return false
}

// PortalType es el tipo de portal efectivo calculado para una sesión.
type PortalType string

const (
	PortalMSPAdmin PortalType = "msp_admin"
	PortalClient   PortalType = "client_portal"
	PortalESN      PortalType = "esn_portal"
)

// Permission nivel de acceso a un módulo.
type Permission string

const (
	PermissionNone  Permission = "none"
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// DeletePolicy define qué hacer al borrar un TenantDomain con access config asociado.
type DeletePolicy string

const (
	// DeleteBlock rechaza el borrado mientras exista configuración dependiente.
	DeleteBlock DeletePolicy = "block"
	// DeleteCascade borra la configuración dependiente en la misma transacción.
	DeleteCascade DeletePolicy = "cascade"
)

// IsValid retorna true si la política es conocida.
func (p DeletePolicy) IsValid() bool {
	return p == DeleteBlock || p == DeleteCascade
}
