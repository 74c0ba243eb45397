package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "Extended Variants Table Service"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the extended variants table merger API!"
	SERVICE_DESCRIPTION ServiceInfo = "Merges variant DBs into one annotated table of ADAR/APOBEC correction candidates."

	SERVICE_ARTIFACT    ServiceInfo = "varmerge"
	SERVICE_VERSION     ServiceInfo = "0.1.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("org.asd-adar:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
