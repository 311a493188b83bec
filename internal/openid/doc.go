// Package openid resuelve claves públicas de firma a partir de un documento
// OpenID discovery y su JWKS.
//
// El Resolver mantiene un cache en memoria con dos slots independientes:
//
//   - issuer: el template de issuer (con placeholder {tenantid}) publicado por
//     el discovery. Se actualiza apenas el primer hop tiene éxito.
//   - snapshot: la lista de claves del JWKS + timestamp del refresh. Se
//     reemplaza entera, solo cuando el segundo hop tiene éxito.
//
// Los lookups toleran datos viejos: si el refresh falla se loguea y se busca
// sobre lo que haya en cache. Este paquete no verifica firmas; solo entrega
// material (PEM + endorsements) para que el caller decida.
package openid
