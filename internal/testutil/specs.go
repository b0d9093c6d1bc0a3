package testutil

// PetsOpenAPI is an OpenAPI 3 document whose endpoints match the samplers
// of PetPlanJMX.
const PetsOpenAPI = `openapi: 3.0.3
info:
  title: Pets API
  version: 1.0.0
servers:
  - url: http://localhost:8080/v1
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
      responses:
        "200":
          description: OK
    post:
      operationId: createPet
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
      responses:
        "201":
          description: Created
  /pets/{id}:
    get:
      operationId: getPet
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: OK
  /old:
    get:
      operationId: oldEndpoint
      responses:
        "200":
          description: OK
`

// PetsOpenAPINext is PetsOpenAPI with GET /old removed and
// DELETE /pets/{id} added.
const PetsOpenAPINext = `openapi: 3.0.3
info:
  title: Pets API
  version: 1.1.0
servers:
  - url: http://localhost:8080/v1
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
      responses:
        "200":
          description: OK
    post:
      operationId: createPet
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
      responses:
        "201":
          description: Created
  /pets/{id}:
    get:
      operationId: getPet
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: OK
    delete:
      operationId: deletePet
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "204":
          description: Deleted
`
